package explorer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/cppunit-explorer/adapter"
	"github.com/ethereum-optimism/infra/cppunit-explorer/events"
	"github.com/ethereum-optimism/infra/cppunit-explorer/exitcodes"
	"github.com/ethereum-optimism/infra/cppunit-explorer/metrics"
	"github.com/ethereum-optimism/infra/cppunit-explorer/model"
	"github.com/ethereum-optimism/infra/cppunit-explorer/registry"
	"github.com/ethereum-optimism/infra/cppunit-explorer/report"
	"github.com/ethereum-optimism/infra/cppunit-explorer/reporting"
	"github.com/ethereum-optimism/infra/cppunit-explorer/runner"
	"github.com/ethereum-optimism/infra/cppunit-explorer/service"
	"github.com/ethereum-optimism/infra/cppunit-explorer/types"
	"github.com/ethereum-optimism/infra/cppunit-explorer/watch"
)

// Explorer implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &Explorer{}

// session is the adapter surface the lifecycle drives.
type session interface {
	service.Explorer
	Discover(ctx context.Context) (types.TestSuiteInfo, error)
	RunAll(ctx context.Context) (*types.RunResult, error)
	Autorun() <-chan struct{}
	TriggerAutorun(ctx context.Context)
}

// Explorer loads CppUnit reports, runs the test executables and reports the
// results. Depending on its config it runs once, periodically, or serves
// run requests over HTTP.
type Explorer struct {
	config      *Config
	version     string
	registry    *registry.Registry
	session     session
	broadcaster *events.Broadcaster
	service     *service.Service
	watcher     *watch.Watcher
	out         io.Writer
	result      atomic.Pointer[types.RunResult]

	running atomic.Bool
	done    chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*Explorer, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Log == nil {
		config.Log = log.Root()
	}

	config.Log.Debug("Creating explorer with config",
		"executablesConfig", config.ExecutablesConfig,
		"executables", config.Executables,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce,
		"serve", config.Serve)

	reg, err := registry.NewRegistry(registry.Config{
		Log:             config.Log,
		ExecutablesFile: config.ExecutablesConfig,
		Executables:     config.Executables,
		Reports:         config.Reports,
		DefaultTimeout:  config.DefaultTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	loader, err := report.NewLoader(config.ReportCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create report loader: %w", err)
	}
	reconciler := runner.NewReconciler(model.New(), loader, config.Log)
	testRunner, err := runner.NewRunner(runner.Config{
		Reconciler:  reconciler,
		Executor:    runner.NewExecutor(runner.DefaultCmdBuilder, runner.DefaultOutputTailBytes, config.Log),
		Executables: reg,
		LogDir:      config.LogDir,
		Log:         config.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create test runner: %w", err)
	}

	broadcaster := events.NewBroadcaster()
	a, err := adapter.New(adapter.Config{
		Reconciler:  reconciler,
		Runner:      testRunner,
		Executables: reg,
		Sink:        events.Multi(broadcaster, events.NewLogSink(config.Log)),
		Log:         config.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create adapter: %w", err)
	}
	config.Log.Info("explorer.New: created registry, runner and adapter", "executables", len(reg.Executables()))

	return newExplorer(config, version, reg, a, broadcaster, shutdownCallback), nil
}

func newExplorer(config *Config, version string, reg *registry.Registry, sess session,
	broadcaster *events.Broadcaster, shutdownCallback func(error)) *Explorer {
	var api *service.APIServer
	if config.Serve {
		api = service.NewAPIServer(sess, broadcaster, config.Log)
	}
	if shutdownCallback == nil {
		shutdownCallback = func(error) {}
	}
	return &Explorer{
		config:           config,
		version:          version,
		registry:         reg,
		session:          sess,
		broadcaster:      broadcaster,
		service:          service.New(config.Service, api, config.Log),
		out:              os.Stdout,
		done:             make(chan struct{}),
		shutdownCallback: shutdownCallback,
	}
}

// Start loads the test tree, then runs the tests once, periodically, or on
// request depending on the config.
// Start implements the cliapp.Lifecycle interface.
func (e *Explorer) Start(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			e.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	bgCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.running.Store(true)

	switch {
	case e.config.RunOnce:
		e.config.Log.Info("Starting cppunit-explorer in run-once mode", "version", e.version)
	case e.config.Serve:
		e.config.Log.Info("Starting cppunit-explorer in serve mode", "version", e.version, "interval", e.config.RunInterval)
	default:
		e.config.Log.Info("Starting cppunit-explorer in continuous mode", "version", e.version, "interval", e.config.RunInterval)
	}

	e.service.Start(bgCtx)

	if err := e.load(ctx); err != nil {
		return err
	}
	e.service.Healthz.MarkReady()

	if e.config.RunOnce {
		result, err := e.runTests(ctx)
		if err != nil {
			return err
		}
		e.config.Log.Info("Tests completed, exiting (run-once mode)")
		if result.Failed() {
			e.config.Log.Warn("Run-once test run completed with failures, returning exit code 1")
			return NewTestFailureError(summarize(result))
		}
		go func() {
			e.shutdownCallback(nil)
		}()
		return nil
	}

	if e.config.Watch {
		if err := e.startWatcher(bgCtx); err != nil {
			return NewRuntimeError(fmt.Errorf("failed to watch files: %w", err))
		}
	}
	if e.config.Autorun {
		e.startAutorun(bgCtx)
	}
	if e.config.RunInterval > 0 {
		if _, err := e.runTests(bgCtx); err != nil {
			e.config.Log.Error("Error running tests", "error", err)
		}
		e.startPeriodic(bgCtx)
	}
	e.config.Log.Debug("cppunit-explorer started successfully")
	return nil
}

// load reads the configured reports. When none of them yields a test, every
// executable is run once so that its report exists.
func (e *Explorer) load(ctx context.Context) error {
	tree, err := e.session.Load(ctx)
	if tree.CountTests() == 0 {
		e.config.Log.Info("No tests found in reports, running executables to discover them")
		tree, err = e.session.Discover(ctx)
	}
	if err != nil {
		if tree.CountTests() == 0 && e.config.RunOnce {
			return NewRuntimeError(fmt.Errorf("failed to load tests: %w", err))
		}
		e.config.Log.Warn("Some reports could not be loaded", "error", err)
	}
	e.config.Log.Info("Test tree ready", "suites", len(tree.Suites), "tests", tree.CountTests())
	return nil
}

// runTests runs the configured tests, or all of them, and prints the results.
func (e *Explorer) runTests(ctx context.Context) (*types.RunResult, error) {
	var (
		result *types.RunResult
		err    error
	)
	if len(e.config.Tests) > 0 {
		e.config.Log.Info("Running selected tests...", "tests", e.config.Tests)
		result, err = e.session.Run(ctx, e.config.Tests)
	} else {
		e.config.Log.Info("Running all tests...")
		result, err = e.session.RunAll(ctx)
	}
	if result != nil {
		e.result.Store(result)
		reporting.PrintRunTable(e.out, result)
		e.config.Log.Info("Test run completed", "run_id", result.RunID, "failed", result.Failed())
	}
	if err != nil {
		e.config.Log.Error("Runtime error running tests", "error", err)
		metrics.RecordErrorDetails("run_tests", err)
		return result, NewRuntimeError(err)
	}
	return result, nil
}

func (e *Explorer) startPeriodic(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.config.Log.Debug("Starting periodic test runner goroutine", "interval", e.config.RunInterval)

		for {
			select {
			case <-time.After(e.config.RunInterval):
				if !e.running.Load() {
					e.config.Log.Debug("Service stopped, exiting periodic test runner")
					return
				}
				e.config.Log.Info("Running periodic tests")
				if _, err := e.runTests(ctx); err != nil {
					e.config.Log.Error("Error running periodic tests", "error", err)
				}
			case <-e.done:
				e.config.Log.Debug("Done signal received, stopping periodic test runner")
				return
			case <-ctx.Done():
				e.config.Log.Debug("Context canceled, stopping periodic test runner")
				return
			}
		}
	}()
}

func (e *Explorer) startAutorun(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for {
			select {
			case <-e.session.Autorun():
				e.config.Log.Info("Executables changed, running all tests")
				if _, err := e.runTests(ctx); err != nil {
					e.config.Log.Error("Error running tests after rebuild", "error", err)
				}
			case <-e.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (e *Explorer) startWatcher(ctx context.Context) error {
	w, err := watch.New(watch.Config{Log: e.config.Log}, e.handleChanges)
	if err != nil {
		return err
	}
	e.watcher = w
	if e.config.ExecutablesConfig != "" {
		if err := w.Add(e.config.ExecutablesConfig, watch.KindConfig); err != nil {
			return err
		}
	}
	e.watchExecutables()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			e.config.Log.Error("File watcher stopped", "error", err)
		}
	}()
	return nil
}

func (e *Explorer) watchExecutables() {
	for _, exe := range e.registry.Executables() {
		if err := e.watcher.Add(exe.Path, watch.KindExecutable); err != nil {
			e.config.Log.Warn("Cannot watch executable", "path", exe.Path, "error", err)
		}
		if err := e.watcher.Add(exe.Report, watch.KindReport); err != nil {
			e.config.Log.Warn("Cannot watch report", "path", exe.Report, "error", err)
		}
	}
}

// handleChanges reloads after reports change. A rebuilt executable also
// triggers an autorun when enabled. Reports written by a run are reconciled
// by that run, so they only cause a reload.
func (e *Explorer) handleChanges(ctx context.Context, changes []watch.Change) {
	var reloadConfig, rebuilt bool
	for _, c := range changes {
		e.config.Log.Debug("File changed", "path", c.Path, "kind", c.Kind)
		switch c.Kind {
		case watch.KindConfig:
			reloadConfig = true
		case watch.KindExecutable:
			rebuilt = true
		}
	}

	if reloadConfig {
		if err := e.registry.Reload(); err != nil {
			e.config.Log.Error("Failed to reload executables config", "error", err)
		} else {
			e.watchExecutables()
		}
	}
	if rebuilt && e.config.Autorun {
		e.session.TriggerAutorun(ctx)
		return
	}
	if _, err := e.session.Load(ctx); err != nil {
		e.config.Log.Warn("Reload had errors", "error", err)
	}
}

// Stop stops the explorer.
// Stop implements the cliapp.Lifecycle interface.
func (e *Explorer) Stop(ctx context.Context) error {
	e.config.Log.Info("Stopping cppunit-explorer")

	if !e.running.Load() {
		e.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}
	e.running.Store(false)

	if err := e.session.Cancel(); err != nil && !errors.Is(err, adapter.ErrNoRun) {
		e.config.Log.Warn("Failed to cancel run", "error", err)
	}
	close(e.done)
	if e.cancel != nil {
		e.cancel()
	}
	e.service.Shutdown()
	e.broadcaster.Close()

	e.config.Log.Info("cppunit-explorer stopped successfully")
	return nil
}

// Stopped returns true if the explorer is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (e *Explorer) Stopped() bool {
	return !e.running.Load()
}

// LastResult returns the result of the most recent run started by the
// lifecycle itself.
func (e *Explorer) LastResult() *types.RunResult {
	return e.result.Load()
}

// WaitForShutdown blocks until all goroutines have terminated.
func (e *Explorer) WaitForShutdown(ctx context.Context) error {
	e.config.Log.Debug("Waiting for all goroutines to terminate")

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.config.Log.Debug("All goroutines terminated successfully")
		return nil
	case <-ctx.Done():
		e.config.Log.Warn("Timed out waiting for goroutines to terminate", "error", ctx.Err())
		return ctx.Err()
	}
}

func summarize(result *types.RunResult) string {
	return fmt.Sprintf("%d failed, %d errored, %d passed, %d skipped",
		result.Count(types.TestStateFailed),
		result.Count(types.TestStateErrored),
		result.Count(types.TestStatePassed),
		result.Count(types.TestStateSkipped))
}
