package vsi

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watchable wraps a Map behind a mutex so it can be hot-reloaded without
// every holder needing to be handed a new pointer (SPEC_FULL.md §10.6's
// `--watch-signal-number-file` supplement, symmetric with
// internal/ruleset.Watcher).
type Watchable struct {
	mu sync.RWMutex
	m  *Map
}

// NewWatchable wraps an already-loaded Map.
func NewWatchable(m *Map) *Watchable {
	return &Watchable{m: m}
}

func (w *Watchable) Lookup(name string) (int, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.m.Lookup(name)
}

func (w *Watchable) Has(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.m.Has(name)
}

func (w *Watchable) set(m *Map) {
	w.mu.Lock()
	w.m = m
	w.mu.Unlock()
}

// Watch reloads path on every write/create/rename event, debounced the
// same way internal/ruleset.Watcher debounces ruleset reloads. A
// malformed reload is logged and the previous map keeps being served.
func (w *Watchable) Watch(ctx context.Context, path string, logger *slog.Logger, debounce time.Duration) error {
	if debounce == 0 {
		debounce = 200 * time.Millisecond
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	target := filepath.Base(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	var timer *time.Timer
	reload := func() {
		m, err := Load(path)
		if err != nil {
			logger.Error("signal-number file reload failed, keeping previous map", "error", err)
			return
		}
		w.set(m)
		logger.Info("signal-number file reloaded")
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("signal-number file watcher error", "error", err)
		}
	}
}
