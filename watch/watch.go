// Package watch notices when test binaries are rebuilt or reports are
// rewritten outside of a run.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 500 * time.Millisecond

// Kind tells what a watched file is.
type Kind int

const (
	KindReport Kind = iota
	KindExecutable
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindExecutable:
		return "executable"
	case KindConfig:
		return "config"
	default:
		return "report"
	}
}

// Change is a watched file that was written, created or replaced.
type Change struct {
	Path string
	Kind Kind
}

// Handler receives the changes collected during one debounce window, sorted
// by path.
type Handler func(ctx context.Context, changes []Change)

type Config struct {
	Debounce time.Duration
	Log      log.Logger
}

// Watcher watches individual files. The containing directories are watched
// so that files replaced by rename are still noticed.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	handler  Handler
	log      log.Logger

	mu      sync.Mutex
	targets map[string]Kind
	dirs    map[string]bool
}

func New(cfg Config, handler Handler) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		fsw:      fsw,
		debounce: cfg.Debounce,
		handler:  handler,
		log:      cfg.Log,
		targets:  make(map[string]Kind),
		dirs:     make(map[string]bool),
	}, nil
}

// Add starts watching path. The file itself does not need to exist yet.
func (w *Watcher) Add(path string, kind Kind) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.dirs[dir] {
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	w.targets[abs] = kind
	w.log.Debug("Watching file", "path", abs, "kind", kind)
	return nil
}

func (w *Watcher) lookup(path string) (Kind, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	kind, ok := w.targets[filepath.Clean(path)]
	return kind, ok
}

// Run delivers changes to the handler until ctx is done. The handler runs on
// the Run goroutine, so changes seen while it runs form the next batch.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	pending := make(map[string]Kind)
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			kind, watched := w.lookup(ev.Name)
			if !watched {
				continue
			}
			pending[filepath.Clean(ev.Name)] = kind
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("File watcher error", "err", err)

		case <-timerC:
			timerC = nil
			changes := make([]Change, 0, len(pending))
			for path, kind := range pending {
				changes = append(changes, Change{Path: path, Kind: kind})
			}
			sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
			clear(pending)
			w.log.Info("Watched files changed", "count", len(changes))
			w.handler(ctx, changes)
		}
	}
}
