package runner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/cppunit-explorer/events"
	"github.com/ethereum-optimism/infra/cppunit-explorer/logging"
	"github.com/ethereum-optimism/infra/cppunit-explorer/metrics"
	"github.com/ethereum-optimism/infra/cppunit-explorer/model"
	"github.com/ethereum-optimism/infra/cppunit-explorer/registry"
	"github.com/ethereum-optimism/infra/cppunit-explorer/reporting"
	"github.com/ethereum-optimism/infra/cppunit-explorer/types"
)

var ErrNoExecutables = errors.New("no test executables configured")

// ExecutableSource provides the executables in configuration order.
type ExecutableSource interface {
	Executables() []registry.Executable
}

// Config holds the dependencies of a Runner.
type Config struct {
	Reconciler  *Reconciler
	Executor    Executor
	Executables ExecutableSource
	LogDir      string // run artifacts are written below this directory when set
	Log         log.Logger
}

// Runner executes suites on request and reports their outcomes. Suites are
// run one at a time; a Runner must not be used by two runs concurrently.
type Runner struct {
	reconciler  *Reconciler
	store       *model.Store
	executor    Executor
	executables ExecutableSource
	logDir      string
	log         log.Logger
	tracer      trace.Tracer
}

func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Reconciler == nil {
		return nil, fmt.Errorf("reconciler cannot be nil")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor cannot be nil")
	}
	if cfg.Executables == nil {
		return nil, fmt.Errorf("executables cannot be nil")
	}
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	return &Runner{
		reconciler:  cfg.Reconciler,
		store:       cfg.Reconciler.Store(),
		executor:    cfg.Executor,
		executables: cfg.Executables,
		logDir:      cfg.LogDir,
		log:         cfg.Log,
		tracer:      otel.Tracer("cppunit runner"),
	}, nil
}

// RunAll runs every known suite in index order.
func (r *Runner) RunAll(ctx context.Context, sink events.Sink) (*types.RunResult, error) {
	ids := make([]string, r.store.Len())
	for i := range ids {
		ids[i] = types.SuiteID(i)
	}
	return r.RunTests(ctx, ids, sink)
}

// RunTests processes ids in order. Suite ids run the suite's binary and
// report every case of the suite. The root id and case ids are accepted but
// run nothing. Unknown ids do not stop the run; they are returned together
// as a joined error. If ctx is canceled the current suite's cases are
// reported skipped and the remaining ids are not processed.
func (r *Runner) RunTests(ctx context.Context, ids []string, sink events.Sink) (*types.RunResult, error) {
	if sink == nil {
		sink = events.Discard
	}
	runID := uuid.New().String()
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("run %s", runID))
	defer span.End()

	logger := r.log.New("run", runID)
	result := &types.RunResult{
		RunID:     runID,
		Requested: slices.Clone(ids),
		StartTime: time.Now(),
	}

	recorder := &outcomeRecorder{}
	sinks := []events.Sink{sink, recorder}
	var fileLogger *logging.FileLogger
	if r.logDir != "" {
		fl, err := logging.NewFileLogger(r.logDir, runID, logger)
		if err != nil {
			logger.Error("Failed to create run log directory", "err", err)
		} else {
			fileLogger = fl
			result.LogDir = fl.GetDirectory()
			sinks = append(sinks, fl)
		}
	}
	out := events.Multi(sinks...)

	logger.Info("Starting run", "tests", len(ids))
	out.Emit(types.NewRunStartedEvent(runID, result.Requested))

	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		parsed, err := r.store.Lookup(id)
		if err != nil {
			logger.Warn("Ignoring unknown test id", "id", id, "err", err)
			metrics.RecordErrorDetails("unknown_test_id", err)
			errs = append(errs, fmt.Errorf("test %q: %w", id, err))
			continue
		}
		switch parsed.Kind {
		case types.IDRoot:
			logger.Debug("Root requested, nothing to run")
			continue
		case types.IDCase:
			// Binaries cannot run a single case; the host requests the suite instead.
			logger.Debug("Ignoring case id", "id", id)
			continue
		}
		if err := r.runSuite(ctx, logger, runID, parsed.Index.Suite, out, fileLogger); err != nil {
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
		}
	}

	out.Emit(types.NewRunFinishedEvent(runID))
	result.Duration = time.Since(result.StartTime)
	result.Outcomes = recorder.outcomes(r.store)

	if fileLogger != nil {
		if err := fileLogger.WriteSummary(reporting.RunSummaryText(result)); err != nil {
			logger.Error("Failed to write run summary", "err", err)
		}
		if err := fileLogger.Close(); err != nil {
			logger.Error("Failed to close run log", "err", err)
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
	}
	logger.Info("Run finished",
		"passed", result.Count(types.TestStatePassed),
		"failed", result.Count(types.TestStateFailed),
		"skipped", result.Count(types.TestStateSkipped),
		"errored", result.Count(types.TestStateErrored),
		"duration", result.Duration)
	return result, err
}

func (r *Runner) runSuite(ctx context.Context, logger log.Logger, runID string, suiteIdx int,
	sink events.Sink, fileLogger *logging.FileLogger) error {
	suite, err := r.store.Suite(suiteIdx)
	if err != nil {
		return err
	}
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("suite %s", suite.Name))
	defer span.End()

	logger = logger.New("suite", suite.Name)
	suiteID := types.SuiteID(suiteIdx)
	caseIDs, err := r.store.CaseIndexes(suiteIdx)
	if err != nil {
		return err
	}
	requested := types.NewIndexSet(caseIDs...)

	sink.Emit(types.NewSuiteEvent(runID, suiteID, types.SuiteStateRunning))
	defer func() {
		sink.Emit(types.NewSuiteEvent(runID, suiteID, types.SuiteStateCompleted))
	}()
	for _, idx := range caseIDs {
		sink.Emit(types.NewTestEvent(runID, idx.String(), types.TestStateRunning, ""))
	}

	reportAll := func(state types.TestState, msg string) {
		for _, idx := range requested.Items() {
			emitOutcome(sink, runID, idx, state, msg)
		}
	}

	exe, source, err := r.executableFor(suite)
	if err != nil {
		logger.Error("Cannot run suite", "err", err)
		reportAll(types.TestStateErrored, err.Error())
		return err
	}

	start := time.Now()
	res, execErr := r.executor.Execute(ctx, exe)
	metrics.RecordSuiteRun(suite.Name, execErr, time.Since(start))
	if fileLogger != nil && res != nil {
		if _, err := fileLogger.WriteSuiteOutput(suite.Name, exe.Path, res.Stdout, res.Stderr, execErr); err != nil {
			logger.Error("Failed to store binary output", "err", err)
		}
	}

	var exitErr *ExecError
	switch {
	case ctx.Err() != nil:
		logger.Warn("Run canceled")
		reportAll(types.TestStateSkipped, canceledMessage)
		return ctx.Err()
	case errors.Is(execErr, ErrTimeout):
		logger.Error("Test binary timed out", "executable", exe.Path, "timeout", exe.Timeout)
		reportAll(types.TestStateErrored, execErr.Error())
		return nil
	case errors.As(execErr, &exitErr):
		logger.Info("Test binary reported failures", "executable", exe.Path, "exitCode", exitErr.ExitCode)
	case execErr != nil:
		logger.Error("Failed to run test binary", "executable", exe.Path, "err", execErr)
	}

	updates, err := r.reconciler.Load(ctx, exe.Report, source)
	if err != nil {
		reportAll(types.TestStateSkipped, "")
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}
	Evaluate(runID, updates, requested, sink)
	return nil
}

// executableFor picks the executable that introduced the suite, falling back
// to the first one.
func (r *Runner) executableFor(suite types.Suite) (registry.Executable, int, error) {
	exes := r.executables.Executables()
	if len(exes) == 0 {
		return registry.Executable{}, 0, ErrNoExecutables
	}
	if suite.Source >= 0 && suite.Source < len(exes) {
		return exes[suite.Source], suite.Source, nil
	}
	r.log.Warn("Suite source executable no longer configured, using the first one",
		"suite", suite.Name, "source", suite.Source)
	return exes[0], 0, nil
}

// outcomeRecorder collects the terminal test events of a run.
type outcomeRecorder struct {
	events []types.Event
}

func (o *outcomeRecorder) Emit(ev types.Event) {
	if ev.Type == types.EventTest && ev.TestState.IsTerminal() {
		o.events = append(o.events, ev)
	}
}

func (o *outcomeRecorder) outcomes(store *model.Store) []types.Outcome {
	out := make([]types.Outcome, 0, len(o.events))
	for _, ev := range o.events {
		outcome := types.Outcome{ID: ev.Test, State: ev.TestState, Message: ev.Message}
		if idx, err := types.ParseIndex(ev.Test); err == nil {
			if s, err := store.Suite(idx.Suite); err == nil {
				outcome.Suite = s.Name
			}
			if c, err := store.Case(idx); err == nil {
				outcome.Case = c.Name
			}
		}
		out = append(out, outcome)
	}
	return out
}

// Discover runs every configured executable once and reconciles its report
// without reporting outcomes. It populates an empty store before the first
// run. As in a run, a binary that failed to start still has its report read,
// while the report of a timed out binary is ignored. Failures of single
// executables are returned joined.
func (r *Runner) Discover(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "discover")
	defer span.End()

	var errs []error
	for i, exe := range r.executables.Executables() {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, execErr := r.executor.Execute(ctx, exe)
		var exitErr *ExecError
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(execErr, ErrTimeout):
			r.log.Error("Test binary timed out during discovery", "executable", exe.Path, "timeout", exe.Timeout)
			errs = append(errs, execErr)
			continue
		case errors.As(execErr, &exitErr):
			r.log.Debug("Test binary reported failures during discovery", "executable", exe.Path)
		case execErr != nil:
			r.log.Error("Failed to run test binary during discovery", "executable", exe.Path, "err", execErr)
		}
		if _, err := r.reconciler.Load(ctx, exe.Report, i); err != nil {
			if execErr != nil && exitErr == nil {
				err = errors.Join(execErr, err)
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
