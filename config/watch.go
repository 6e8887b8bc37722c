package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/deepnoodle-ai/cowrite/slogger"
	"github.com/fsnotify/fsnotify"
)

// debounceInterval collapses the bursts of write events editors and
// atomic-rename saves produce for a single logical change.
const debounceInterval = 500 * time.Millisecond

// Watcher re-reads a configuration file when it changes and hands each
// valid new Config to a callback. Invalid or unreadable configs are
// logged and skipped; the previous configuration stays in effect.
type Watcher struct {
	path      string
	watcher   *fsnotify.Watcher
	logger    slogger.Logger
	onChange  func(*Config)
	debouncer map[string]time.Time
}

// NewWatcher creates a watcher for the given config file. onChange runs
// on the watcher goroutine for every valid reload.
func NewWatcher(path string, logger slogger.Logger, onChange func(*Config)) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("onChange callback is required")
	}
	if logger == nil {
		logger = slogger.DefaultLogger
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		path:      path,
		watcher:   watcher,
		logger:    slogger.WithComponent(logger, "config"),
		onChange:  onChange,
		debouncer: make(map[string]time.Time),
	}, nil
}

// Start blocks, delivering reloads until the context ends. Watching the
// directory rather than the file itself survives the rename dance most
// editors save with.
func (w *Watcher) Start(ctx context.Context) error {
	defer w.watcher.Close()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.logger.Info("watching config file", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return
	}
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
		return
	}
	now := time.Now()
	if last, ok := w.debouncer[event.Name]; ok && now.Sub(last) < debounceInterval {
		return
	}
	w.debouncer[event.Name] = now

	config, err := ParseFile(w.path)
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous", "error", err)
		return
	}
	if err := config.Validate(); err != nil {
		w.logger.Warn("reloaded config is invalid, keeping previous", "error", err)
		return
	}
	w.logger.Info("config reloaded", "path", w.path)
	w.onChange(config)
}
