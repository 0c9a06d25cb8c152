package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/cppunit-explorer/model"
	"github.com/ethereum-optimism/infra/cppunit-explorer/registry"
	"github.com/ethereum-optimism/infra/cppunit-explorer/report"
)

func testLogger() log.Logger {
	return log.NewLogger(log.DiscardHandler())
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func parseFixture(t *testing.T, name string) *report.Report {
	t.Helper()
	rep, err := report.ParseBytes(readFixture(t, name))
	require.NoError(t, err)
	return rep
}

func newTestReconciler(t *testing.T) *Reconciler {
	t.Helper()
	loader, err := report.NewLoader(0)
	require.NoError(t, err)
	return NewReconciler(model.New(), loader, testLogger())
}

type staticExecutables []registry.Executable

func (s staticExecutables) Executables() []registry.Executable {
	return s
}

// fakeExecutor writes the next queued report fixture to the executable's
// report path on every call.
type fakeExecutor struct {
	t         *testing.T
	reports   []string
	calls     []registry.Executable
	err       error
	onExecute func(ctx context.Context) error
}

func (f *fakeExecutor) Execute(ctx context.Context, exe registry.Executable) (*ExecResult, error) {
	f.calls = append(f.calls, exe)
	if f.onExecute != nil {
		if err := f.onExecute(ctx); err != nil {
			return &ExecResult{}, err
		}
	}
	if len(f.reports) > 0 {
		next := f.reports[0]
		f.reports = f.reports[1:]
		require.NoError(f.t, os.WriteFile(exe.Report, readFixture(f.t, next), 0644))
	}
	return &ExecResult{Stdout: []byte("OK\n")}, f.err
}

type runnerFixture struct {
	runner     *Runner
	reconciler *Reconciler
	executor   *fakeExecutor
	exe        registry.Executable
}

// newRunnerFixture creates a runner whose store was loaded from initial.
func newRunnerFixture(t *testing.T, initial string, logDir string) *runnerFixture {
	t.Helper()
	dir := t.TempDir()
	exe := registry.Executable{
		Name:   "math_tests",
		Path:   filepath.Join(dir, "math_tests"),
		Report: filepath.Join(dir, "report.xml"),
	}
	require.NoError(t, os.WriteFile(exe.Report, readFixture(t, initial), 0644))

	rec := newTestReconciler(t)
	_, err := rec.Load(context.Background(), exe.Report, 0)
	require.NoError(t, err)

	fake := &fakeExecutor{t: t}
	r, err := NewRunner(Config{
		Reconciler:  rec,
		Executor:    fake,
		Executables: staticExecutables{exe},
		LogDir:      logDir,
		Log:         testLogger(),
	})
	require.NoError(t, err)
	return &runnerFixture{runner: r, reconciler: rec, executor: fake, exe: exe}
}
