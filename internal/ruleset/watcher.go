package ruleset

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadCallback is invoked with a freshly parsed Result after the
// ruleset file changes on disk. On parse failure result is nil and err
// is non-nil; the previous ruleset keeps running (SPEC_FULL.md §10.6:
// all-or-nothing atomic replacement, never a partially applied tree).
type ReloadCallback func(result *Result, err error)

// Watcher monitors a ruleset file for changes and triggers reloads
// through a debounced fsnotify loop.
type Watcher struct {
	path     string
	signals  SignalNames
	replay   bool
	callback ReloadCallback
	logger   *slog.Logger
	debounce time.Duration
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce overrides the default one second debounce.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher creates a ruleset file watcher (SPEC_FULL.md §10.6, flag
// --watch-ruleset).
func NewWatcher(path string, signals SignalNames, replay bool, callback ReloadCallback, logger *slog.Logger, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     path,
		signals:  signals,
		replay:   replay,
		callback: callback,
		logger:   logger,
		debounce: time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the ruleset file's parent directory for changes and
// invokes the callback on debounced write/create events. It blocks until
// ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		return err
	}

	targetName := filepath.Base(w.path)
	reloadCh := make(chan struct{}, 1)
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != targetName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				select {
				case reloadCh <- struct{}{}:
				default:
				}
			})

		case <-reloadCh:
			w.reload()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			if w.logger != nil {
				w.logger.Error("ruleset watcher error", "error", err)
			}
		}
	}
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.callback(nil, err)
		return
	}
	result, err := Parse(data, w.signals, w.replay)
	w.callback(result, err)
}
