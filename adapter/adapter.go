// Package adapter exposes the explorer to a host: it loads the test tree,
// runs requested tests and cancels runs, reporting everything as events.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/semaphore"

	"github.com/ethereum-optimism/infra/cppunit-explorer/events"
	"github.com/ethereum-optimism/infra/cppunit-explorer/runner"
	"github.com/ethereum-optimism/infra/cppunit-explorer/types"
)

var ErrNoRun = errors.New("no run in progress")

// Config holds the dependencies of an Adapter.
type Config struct {
	Reconciler  *runner.Reconciler
	Runner      *runner.Runner
	Executables runner.ExecutableSource
	Sink        events.Sink
	Log         log.Logger
}

// Adapter serializes loads and runs against one model store. Every method is
// safe for concurrent use.
type Adapter struct {
	reconciler  *runner.Reconciler
	runner      *runner.Runner
	executables runner.ExecutableSource
	sink        events.Sink
	log         log.Logger

	// One reconciliation pass at a time.
	sem *semaphore.Weighted

	mu      sync.Mutex
	current *runHandle

	tree    atomic.Pointer[types.TestSuiteInfo]
	lastRun atomic.Pointer[types.RunResult]
	autorun chan struct{}
}

func New(cfg Config) (*Adapter, error) {
	if cfg.Reconciler == nil {
		return nil, fmt.Errorf("reconciler cannot be nil")
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if cfg.Executables == nil {
		return nil, fmt.Errorf("executables cannot be nil")
	}
	if cfg.Sink == nil {
		cfg.Sink = events.Discard
	}
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	a := &Adapter{
		reconciler:  cfg.Reconciler,
		runner:      cfg.Runner,
		executables: cfg.Executables,
		sink:        cfg.Sink,
		log:         cfg.Log,
		sem:         semaphore.NewWeighted(1),
		autorun:     make(chan struct{}, 1),
	}
	empty := a.reconciler.Store().Tree()
	a.tree.Store(&empty)
	return a, nil
}

// Load merges the report of every configured executable into the store and
// returns the resulting tree. Reports that cannot be read are listed in the
// load-finished event and returned as a joined error; the others still load.
func (a *Adapter) Load(ctx context.Context) (types.TestSuiteInfo, error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return types.TestSuiteInfo{}, err
	}
	defer a.sem.Release(1)

	a.sink.Emit(types.NewLoadStartedEvent())

	var (
		errs    []error
		loadErr []string
	)
	for i, exe := range a.executables.Executables() {
		if _, err := a.reconciler.Load(ctx, exe.Report, i); err != nil {
			errs = append(errs, err)
			loadErr = append(loadErr, err.Error())
		}
	}

	tree := a.reconciler.Store().Tree()
	a.tree.Store(&tree)
	a.sink.Emit(types.NewLoadFinishedEvent(tree, loadErr))
	a.log.Info("Tests loaded", "suites", len(tree.Suites), "tests", tree.CountTests(), "errors", len(errs))
	return tree, errors.Join(errs...)
}

// Discover runs every executable once to populate the store, then loads.
func (a *Adapter) Discover(ctx context.Context) (types.TestSuiteInfo, error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return types.TestSuiteInfo{}, err
	}
	err := a.runner.Discover(ctx)
	a.sem.Release(1)
	if err != nil {
		a.log.Warn("Discovery finished with errors", "err", err)
	}
	return a.Load(ctx)
}

// Run runs the requested test ids. It waits for any load or run in progress.
func (a *Adapter) Run(ctx context.Context, ids []string) (*types.RunResult, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	h := &runHandle{cancel: cancel}
	a.mu.Lock()
	a.current = h
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		if a.current == h {
			a.current = nil
		}
		a.mu.Unlock()
	}()

	if err := a.sem.Acquire(runCtx, 1); err != nil {
		return nil, err
	}
	defer a.sem.Release(1)

	result, err := a.runner.RunTests(runCtx, ids, a.sink)
	tree := a.reconciler.Store().Tree()
	a.tree.Store(&tree)
	if result != nil {
		a.lastRun.Store(result)
	}
	return result, err
}

// RunAll runs every known suite.
func (a *Adapter) RunAll(ctx context.Context) (*types.RunResult, error) {
	tree := a.Tree()
	ids := make([]string, 0, len(tree.Suites))
	for _, s := range tree.Suites {
		ids = append(ids, s.ID)
	}
	return a.Run(ctx, ids)
}

// Cancel stops the most recently requested run, including one still waiting
// to start.
func (a *Adapter) Cancel() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return ErrNoRun
	}
	a.log.Info("Canceling run")
	a.current.cancel()
	return nil
}

type runHandle struct {
	cancel context.CancelFunc
}

// Tree returns the tree as of the last completed load or run.
func (a *Adapter) Tree() types.TestSuiteInfo {
	return *a.tree.Load()
}

// LastRun returns the result of the last completed run, if any.
func (a *Adapter) LastRun() *types.RunResult {
	return a.lastRun.Load()
}

// Autorun is signaled when the tests should be run again without a host
// request. Signals are coalesced.
func (a *Adapter) Autorun() <-chan struct{} {
	return a.autorun
}

// TriggerAutorun reloads the tree and signals Autorun.
func (a *Adapter) TriggerAutorun(ctx context.Context) {
	if _, err := a.Load(ctx); err != nil {
		a.log.Warn("Reload before autorun had errors", "err", err)
	}
	select {
	case a.autorun <- struct{}{}:
	default:
	}
}
