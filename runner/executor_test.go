package runner

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/cppunit-explorer/registry"
)

// shellBuilder ignores the requested command and runs script with sh instead.
func shellBuilder(script string, gotDir *string) CmdBuilder {
	return func(ctx context.Context, dir string, name string, arg ...string) (*exec.Cmd, func()) {
		if gotDir != nil {
			*gotDir = dir
		}
		cmd := exec.CommandContext(ctx, "sh", "-c", script)
		cmd.Dir = dir
		cmd.WaitDelay = time.Second
		return cmd, func() {}
	}
}

func testExecutable(dir string, timeout time.Duration) registry.Executable {
	return registry.Executable{
		Name:    "math_tests",
		Path:    filepath.Join(dir, "math_tests"),
		Report:  filepath.Join(dir, "report.xml"),
		Timeout: timeout,
	}
}

func TestExecutorResults(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name       string
		script     string
		timeout    time.Duration
		wantStdout string
		check      func(t *testing.T, err error)
	}{
		{
			name:       "success",
			script:     "echo OK",
			wantStdout: "OK\n",
			check:      func(t *testing.T, err error) { require.NoError(t, err) },
		},
		{
			name:       "non-zero exit",
			script:     "echo failing >&2; exit 3",
			wantStdout: "",
			check: func(t *testing.T, err error) {
				var execErr *ExecError
				require.ErrorAs(t, err, &execErr)
				assert.Equal(t, 3, execErr.ExitCode)
				assert.Contains(t, execErr.Stderr, "failing")
			},
		},
		{
			name:    "timeout",
			script:  "exec sleep 5",
			timeout: 50 * time.Millisecond,
			check:   func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrTimeout) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotDir string
			e := NewExecutor(shellBuilder(tt.script, &gotDir), 0, log.NewLogger(log.DiscardHandler()))
			res, err := e.Execute(context.Background(), testExecutable(dir, tt.timeout))
			tt.check(t, err)
			require.NotNil(t, res)
			assert.Equal(t, dir, gotDir)
			if tt.wantStdout != "" {
				assert.Equal(t, tt.wantStdout, string(res.Stdout))
			}
		})
	}
}

func TestExecutorCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := NewExecutor(shellBuilder("exec sleep 5", nil), 0, log.NewLogger(log.DiscardHandler()))

	time.AfterFunc(50*time.Millisecond, cancel)
	_, err := e.Execute(ctx, testExecutable(t.TempDir(), time.Minute))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestExecutorRunsBinaryFromItsDirectory(t *testing.T) {
	dir := t.TempDir()
	script := "#!/bin/sh\necho ran > marker.txt\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_tests"), []byte(script), 0755))

	e := NewExecutor(nil, 0, log.NewLogger(log.DiscardHandler()))
	_, err := e.Execute(context.Background(), testExecutable(dir, time.Minute))
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "marker.txt"))
	require.NoError(t, err)
	assert.Equal(t, "ran\n", string(content))
}

func TestExecutorMissingBinary(t *testing.T) {
	e := NewExecutor(nil, 0, log.NewLogger(log.DiscardHandler()))
	_, err := e.Execute(context.Background(), testExecutable(t.TempDir(), time.Minute))
	require.Error(t, err)
	var execErr *ExecError
	assert.False(t, errors.As(err, &execErr))
}
