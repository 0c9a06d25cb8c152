package logging

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/cppunit-explorer/types"
)

func TestNewFileLogger(t *testing.T) {
	_, err := NewFileLogger(t.TempDir(), "", nil)
	assert.Error(t, err)
	_, err = NewFileLogger("", "run", nil)
	assert.Error(t, err)

	dir := t.TempDir()
	logger, err := NewFileLogger(dir, "abc", log.NewLogger(log.DiscardHandler()))
	require.NoError(t, err)
	assert.Equal(t, "abc", logger.GetRunID())
	assert.Equal(t, filepath.Join(dir, "testrun-abc"), logger.GetDirectory())
	assert.DirExists(t, filepath.Join(dir, "testrun-abc", SuitesDirectory))
}

func TestWriteSuiteOutput(t *testing.T) {
	logger, err := NewFileLogger(t.TempDir(), "run", nil)
	require.NoError(t, err)

	path, err := logger.WriteSuiteOutput("ns::Math Test", "/bin/math_tests",
		[]byte("\x1b[32mOK (2 tests)\x1b[0m"), []byte("warning"), errors.New("exit status 1"))
	require.NoError(t, err)
	assert.Equal(t, "ns_Math_Test.log", filepath.Base(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "OK (2 tests)")
	assert.NotContains(t, string(content), "\x1b[")
	assert.Contains(t, string(content), "ERROR: exit status 1")
	assert.Contains(t, string(content), "EXECUTABLE: /bin/math_tests")
}

func TestEventsAreWrittenAsJSONLines(t *testing.T) {
	logger, err := NewFileLogger(t.TempDir(), "run", nil)
	require.NoError(t, err)

	logger.Emit(types.NewSuiteEvent("run", "0", types.SuiteStateRunning))
	logger.Emit(types.NewTestEvent("run", "0.0", types.TestStateFailed, "boom"))
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	f, err := os.Open(filepath.Join(logger.GetDirectory(), EventsFilename))
	require.NoError(t, err)
	defer f.Close()

	var got []types.Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev types.Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		got = append(got, ev)
	}
	require.Len(t, got, 2)
	assert.Equal(t, types.EventSuite, got[0].Type)
	assert.Equal(t, "boom", got[1].Message)
}

func TestWriteSummary(t *testing.T) {
	logger, err := NewFileLogger(t.TempDir(), "run", nil)
	require.NoError(t, err)
	require.NoError(t, logger.WriteSummary("all good"))

	content, err := os.ReadFile(filepath.Join(logger.GetDirectory(), SummaryFilename))
	require.NoError(t, err)
	assert.Equal(t, "all good", string(content))
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "MathTest", SafeFilename("MathTest"))
	assert.Equal(t, "a_b", SafeFilename("a/b"))
	assert.Equal(t, "suite", SafeFilename(".."))
	assert.Equal(t, "suite", SafeFilename("::"))
}

func TestAsyncFileClosed(t *testing.T) {
	af, err := NewAsyncFile(filepath.Join(t.TempDir(), "x.log"))
	require.NoError(t, err)
	require.NoError(t, af.Write([]byte("a")))
	require.NoError(t, af.Close())
	assert.Error(t, af.Write([]byte("b")))
}
