package vault

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file's size must hold still before the file
// counts as fully written.
const DefaultSettle = 2 * time.Second

// Watcher reports new activity files dropped into a directory. A device
// copies files in chunks, so a file is only reported once its size has been
// stable for the settle interval.
type Watcher struct {
	dir    string
	settle time.Duration
	logger *slog.Logger
}

// NewWatcher creates a watcher for dir. A settle of zero or less falls back
// to DefaultSettle.
func NewWatcher(dir string, settle time.Duration, logger *slog.Logger) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		dir:    dir,
		settle: settle,
		logger: logger,
	}
}

// Run watches the directory until ctx is done and invokes fn once per
// settled activity file. Callback errors are logged, not returned, so one
// bad file does not stop the watch.
func (w *Watcher) Run(ctx context.Context, fn func(path string) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.logger.Info("watching for activity files", "dir", w.dir)

	// Size last observed per pending path. A fresh event stores -1 so the
	// file survives at least one full tick before it can settle.
	pending := make(map[string]int64)
	ticker := time.NewTicker(w.settle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
				continue
			}
			if !IsActivityFile(ev.Name) {
				continue
			}
			if _, seen := pending[ev.Name]; !seen {
				w.logger.Debug("activity file appeared", "file", ev.Name)
			}
			pending[ev.Name] = -1

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-ticker.C:
			for path, last := range pending {
				info, err := os.Stat(path)
				if err != nil {
					// Removed before it settled.
					delete(pending, path)
					continue
				}
				if info.Size() != last {
					pending[path] = info.Size()
					continue
				}
				delete(pending, path)
				w.logger.Debug("activity file settled", "file", path, "size", info.Size())
				if err := fn(path); err != nil {
					w.logger.Warn("handling activity file", "file", path, "error", err)
				}
			}
		}
	}
}
