package config

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads the configuration file when it changes on disk.
type Watcher struct {
	logger  zerolog.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher creates a config file watcher.
func NewWatcher(logger zerolog.Logger) *Watcher {
	return &Watcher{
		logger: logger.With().Str("component", "config-watcher").Logger(),
	}
}

// Watch starts watching path and calls reloadFn with each successfully
// reloaded configuration. Editors replace files rather than writing in
// place, so changes are debounced and a parse failure keeps the previous
// configuration running.
func (w *Watcher) Watch(ctx context.Context, path string, reloadFn func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	w.watcher = watcher

	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	go w.processEvents(ctx, path, reloadFn)

	w.logger.Info().Str("path", path).Msg("watching config file")
	return nil
}

func (w *Watcher) processEvents(ctx context.Context, path string, reloadFn func(*Config)) {
	var reloadTimer *time.Timer
	reloadDelay := 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			_ = w.watcher.Close()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug().Str("op", event.Op.String()).Msg("config file changed")

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(reloadDelay, func() {
				// Re-add in case the file was replaced by rename.
				_ = w.watcher.Add(path)
				cfg, err := Load(path)
				if err != nil {
					w.logger.Error().Err(err).Msg("config reload failed, keeping previous")
					return
				}
				w.logger.Info().Msg("config reloaded")
				reloadFn(cfg)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("watcher error")
		}
	}
}

// Stop stops watching.
func (w *Watcher) Stop() error {
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
