package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch rebuilds the index whenever the file at path changes, until ctx is
// cancelled. Bursts of events within debounce collapse into one reload.
//
// The parent directory is watched rather than the file itself so editors that
// save by rename-and-replace keep triggering reloads.
func (s *Service) Watch(ctx context.Context, path string, debounce time.Duration) (err error) {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve catalog path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch catalog directory: %w", err)
	}

	s.log.Info().Str("path", abs).Dur("debounce", debounce).Msg("Watching catalog for changes")

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event, abs) {
				continue
			}
			s.log.Debug().Str("event", event.Op.String()).Msg("Catalog changed")
			timer.Reset(debounce)

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn().Err(werr).Msg("File watcher error")

		case <-timer.C:
			// Reload logs and keeps the previous index on failure.
			_ = s.Reload(ctx)
		}
	}
}

func relevant(event fsnotify.Event, path string) bool {
	if filepath.Clean(event.Name) != path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
