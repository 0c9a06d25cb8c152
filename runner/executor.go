package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/cppunit-explorer/registry"
)

var _ Executor = (*binaryExecutor)(nil)

var ErrTimeout = errors.New("test binary timed out")

// Executor runs a test binary to completion. The binary is expected to
// rewrite its CppUnit report as a side effect.
type Executor interface {
	Execute(ctx context.Context, exe registry.Executable) (*ExecResult, error)
}

// ExecResult holds the captured output of one binary run.
type ExecResult struct {
	Stdout    []byte
	Stderr    []byte
	Duration  time.Duration
	Truncated bool
}

// ExecError is returned when the binary exits with a non-zero status.
// CppUnit runners do this whenever a test fails.
type ExecError struct {
	Executable string
	ExitCode   int
	Stderr     string
}

func (e *ExecError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with code %d", e.Executable, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Executable, e.ExitCode, e.Stderr)
}

// CmdBuilder creates the command for name started in dir. The returned
// function releases anything the builder allocated.
type CmdBuilder func(ctx context.Context, dir string, name string, arg ...string) (*exec.Cmd, func())

// DefaultCmdBuilder starts the command directly in dir.
func DefaultCmdBuilder(ctx context.Context, dir string, name string, arg ...string) (*exec.Cmd, func()) {
	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.Dir = dir
	cmd.WaitDelay = killWaitDelay
	return cmd, func() {}
}

type binaryExecutor struct {
	cmdBuilder CmdBuilder
	tailBytes  int
	log        log.Logger
}

// NewExecutor creates an executor. A nil cmdBuilder uses DefaultCmdBuilder.
func NewExecutor(cmdBuilder CmdBuilder, tailBytes int, logger log.Logger) Executor {
	if cmdBuilder == nil {
		cmdBuilder = DefaultCmdBuilder
	}
	if logger == nil {
		logger = log.Root()
	}
	return &binaryExecutor{
		cmdBuilder: cmdBuilder,
		tailBytes:  tailBytes,
		log:        logger,
	}
}

func (e *binaryExecutor) Execute(ctx context.Context, exe registry.Executable) (*ExecResult, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if exe.Path == "" {
		return nil, fmt.Errorf("executable path cannot be empty")
	}

	execCtx := ctx
	if exe.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, exe.Timeout)
		defer cancel()
	}

	cmd, cleanup := e.cmdBuilder(execCtx, exe.Dir(), exe.Command())
	defer cleanup()

	stdout := newTailBuffer(e.tailBytes)
	stderr := newTailBuffer(e.tailBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	e.log.Info("Running test binary", "executable", exe.Path, "dir", exe.Dir())
	start := time.Now()
	runErr := cmd.Run()
	result := &ExecResult{
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		Duration:  time.Since(start),
		Truncated: stdout.Truncated() || stderr.Truncated(),
	}
	if runErr == nil {
		return result, nil
	}

	// The caller's context wins over our own deadline.
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return result, fmt.Errorf("%w after %s", ErrTimeout, exe.Timeout)
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return result, &ExecError{
			Executable: exe.Path,
			ExitCode:   exitErr.ExitCode(),
			Stderr:     string(result.Stderr),
		}
	}
	return result, fmt.Errorf("failed to run %s: %w", exe.Path, runErr)
}
