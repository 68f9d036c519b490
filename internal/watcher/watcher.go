// Package watcher monitors the settings file and reports edits so the
// service can reload its configuration.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// SettingsWatcher monitors a settings file and calls onChange after it
// is written or recreated. It watches the parent directory since
// fsnotify cannot watch a file that editors replace atomically.
type SettingsWatcher struct {
	settingsPath string
	parentPath   string
	onChange     func()
	watcher      *fsnotify.Watcher
	ctx          context.Context
	cancel       context.CancelFunc
	mu           sync.Mutex
	running      bool
	debounce     time.Duration
}

// New creates a SettingsWatcher for settingsPath. The onChange callback
// fires after the file settles following a write, rename, or recreate.
func New(settingsPath string, onChange func()) (*SettingsWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &SettingsWatcher{
		settingsPath: settingsPath,
		parentPath:   filepath.Dir(settingsPath),
		onChange:     onChange,
		watcher:      fsw,
		ctx:          ctx,
		cancel:       cancel,
		debounce:     250 * time.Millisecond,
	}, nil
}

// Start begins watching for settings changes.
func (w *SettingsWatcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addWatch(); err != nil {
		log.Warn().Err(err).Str("path", w.parentPath).Msg("failed to watch settings directory")
		// The loop re-establishes the watch if the directory appears later.
	}

	go w.watchLoop()
	return nil
}

// Stop stops the watcher.
func (w *SettingsWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	w.cancel()
	return w.watcher.Close()
}

func (w *SettingsWatcher) addWatch() error {
	if _, err := os.Stat(w.parentPath); os.IsNotExist(err) {
		return err
	}
	return w.watcher.Add(w.parentPath)
}

func (w *SettingsWatcher) watchLoop() {
	var debounceTimer *time.Timer

	for {
		select {
		case <-w.ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			eventPath := filepath.Clean(event.Name)

			// Parent directory recreated: re-establish the watch.
			if eventPath == w.parentPath && event.Op&fsnotify.Create != 0 {
				_ = w.addWatch()
				continue
			}

			if eventPath != filepath.Clean(w.settingsPath) {
				continue
			}

			// Writes, renames (atomic replace), and creates all count as
			// a change. A bare remove is usually the first half of a
			// replace, so it schedules the callback too; the debounce
			// collapses the pair into one notification.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(w.debounce, w.notify)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("settings watcher error")
		}
	}
}

func (w *SettingsWatcher) notify() {
	log.Info().Str("path", w.settingsPath).Msg("settings file changed")
	if w.onChange != nil {
		w.onChange()
	}
}
