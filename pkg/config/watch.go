package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"paydesk/pkg/performance"
)

// Watch reloads the config file at path whenever it changes and hands the
// new value to onChange. Editors write files in bursts, so events are
// debounced. Invalid files are logged and skipped. Watch blocks until ctx is
// done.
func Watch(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: atomic saves replace the file and drop a file watch.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	debouncer := performance.NewDebouncer(debounce)
	defer debouncer.Clear()

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			debouncer.Debounce(target, func() {
				cfg, err := LoadFrom(path)
				if err != nil {
					logger.Warn("config reload skipped", "path", path, "error", err)
					return
				}
				logger.Info("config reloaded", "path", path)
				onChange(cfg)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		}
	}
}
