// Package watch is the optional directory watcher for ragctl serve
// --watch: it re-runs ingest's process_document whenever a file is
// created or written under a watched directory.
//
// There is no polling fallback (fsnotify is required, matching the
// platforms ragctl targets), no gitignore matching (there is no VCS
// underneath a document corpus), and no rename/delete handling (a
// corpus document is deleted through the metadata store's explicit
// delete path, not by removing a file from disk). Rapid writes to the
// same path within a short window coalesce into a single ingest call
// instead of thrashing the pipeline once per fsync.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Options configures the watcher. Zero values fall back to sane
// defaults via withDefaults.
type Options struct {
	DebounceWindow time.Duration
}

func (o Options) withDefaults() Options {
	if o.DebounceWindow == 0 {
		o.DebounceWindow = 500 * time.Millisecond
	}
	return o
}

// HandlerFunc processes one file path detected by the watcher. A
// non-nil error is logged, not fatal: the watcher keeps running.
type HandlerFunc func(ctx context.Context, path string) error

// Watcher watches a single root directory (non-recursively into
// subdirectories other than the root, since a document corpus is
// typically a flat drop folder) and debounces rapid writes before
// calling Handle.
type Watcher struct {
	fsw    *fsnotify.Watcher
	opts   Options
	logger *slog.Logger
	handle HandlerFunc

	mu      sync.Mutex
	timers  map[string]*time.Timer
}

// New creates a Watcher. Handle is called once per debounced path.
func New(opts Options, logger *slog.Logger, handle HandlerFunc) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &Watcher{
		fsw:    fsw,
		opts:   opts.withDefaults(),
		logger: logger,
		handle: handle,
		timers: make(map[string]*time.Timer),
	}, nil
}

// Run watches root until ctx is cancelled. It blocks.
func (w *Watcher) Run(ctx context.Context, root string) error {
	if err := w.fsw.Add(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	defer w.fsw.Close()

	w.logger.Info("watch mode started", slog.String("dir", root))

	for {
		select {
		case <-ctx.Done():
			w.drainTimers()
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				continue
			}
			w.debounce(ctx, event.Name)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

// debounce schedules path for handling after the debounce window,
// resetting any in-flight timer for the same path (coalescing repeated
// writes into one ingest call).
func (w *Watcher) debounce(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.opts.DebounceWindow, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		if err := w.handle(ctx, path); err != nil {
			w.logger.Warn("watch ingest failed", slog.String("path", path), slog.String("error", err.Error()))
		}
	})
}

func (w *Watcher) drainTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range w.timers {
		t.Stop()
	}
}
