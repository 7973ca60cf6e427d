package toolexec

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// AllowlistWatcher reloads the allowlist when its backing file changes, so
// rules edited mid-session take effect without a restart.
type AllowlistWatcher struct {
	allowlist *Allowlist
	watcher   *fsnotify.Watcher
	debounce  time.Duration
	done      chan struct{}
	stopOnce  sync.Once

	timerMu sync.Mutex
	timer   *time.Timer
}

// NewAllowlistWatcher creates a watcher for the allowlist's file.
func NewAllowlistWatcher(allowlist *Allowlist) (*AllowlistWatcher, error) {
	if allowlist == nil {
		return nil, fmt.Errorf("allowlist is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &AllowlistWatcher{
		allowlist: allowlist,
		watcher:   watcher,
		debounce:  100 * time.Millisecond,
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching. Editors replace files rather than write in place, so
// the parent directory is watched and events are filtered by name.
func (w *AllowlistWatcher) Start() error {
	dir := filepath.Dir(w.allowlist.Path())
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch allowlist directory: %w", err)
	}

	go w.eventLoop()

	log.Info().Str("path", w.allowlist.Path()).Msg("Allowlist watcher started")
	return nil
}

// Stop halts the watcher.
func (w *AllowlistWatcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)
	})

	w.timerMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timerMu.Unlock()

	return w.watcher.Close()
}

func (w *AllowlistWatcher) eventLoop() {
	target := filepath.Clean(w.allowlist.Path())

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Allowlist watcher error")
		}
	}
}

// scheduleReload debounces bursts of events from a single file replacement.
func (w *AllowlistWatcher) scheduleReload() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.allowlist.Load(); err != nil {
			log.Warn().Err(err).Str("path", w.allowlist.Path()).Msg("Allowlist reload failed")
		}
	})
}
