package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lotas/readlater/internal/applog"
)

const reloadDebounce = 200 * time.Millisecond

// Watch reloads the file at path whenever it changes and passes the new
// configuration to fn. The parent directory is watched so editors that save by
// rename are picked up. Invalid files are logged and skipped. Blocks until ctx is done.
func Watch(ctx context.Context, path string, fn func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(reloadDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			applog.Error("config.watch", err)
		case <-pending:
			pending = nil
			cfg, err := Load(abs)
			if err != nil {
				applog.Error("config.reload", err, "path", abs)
				continue
			}
			applog.Info("config.reloaded", "path", abs)
			fn(cfg)
		}
	}
}
