package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads cfg from path whenever the file changes, calling onReload
// after each successful reload. Secrets stay env-sourced so a reload never
// clears them. Blocks until ctx is done.
func Watch(ctx context.Context, path string, cfg *Config, onReload func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors replace files via rename, which would
	// drop a watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	var debounce *time.Timer
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
			// Debounce bursts of events from a single save.
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(250*time.Millisecond, func() {
				fresh, err := Load(path)
				if err != nil {
					slog.Warn("config reload failed, keeping previous config", "error", err)
					return
				}
				cfg.ReplaceFrom(fresh)
				slog.Info("config reloaded", "path", path)
				if onReload != nil {
					onReload()
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}
