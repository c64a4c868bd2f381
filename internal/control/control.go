// Package control watches the .lattice/control directory for pause and
// stop signal files and exposes them as a gate the engine consults
// between subtasks.
package control

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrStopped indicates a stop signal was received.
var ErrStopped = errors.New("stop signal received")

// pollInterval bounds how long a paused run waits between re-checks
// when the watcher missed an event.
const pollInterval = 250 * time.Millisecond

// Watcher monitors the control directory for signal files.
// A file named "stop" stops the run; a file named "pause" holds it
// until the file is removed.
type Watcher struct {
	controlDir string

	mu          sync.RWMutex
	stopSignal  bool
	pauseSignal bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher creates a watcher over workDir/.lattice/control.
// When the fsnotify watcher cannot be started, the Watcher degrades to
// stat-based polling rather than failing.
func NewWatcher(workDir string) (*Watcher, error) {
	controlDir := filepath.Join(workDir, ".lattice", "control")
	if err := os.MkdirAll(controlDir, 0755); err != nil {
		return nil, err
	}

	w := &Watcher{
		controlDir: controlDir,
		done:       make(chan struct{}),
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return w, nil
	}
	if err := fsw.Add(controlDir); err != nil {
		fsw.Close()
		return w, nil
	}
	w.watcher = fsw
	go w.watchSignals()

	return w, nil
}

// watchSignals monitors the control directory for stop/pause files.
func (w *Watcher) watchSignals() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			base := filepath.Base(event.Name)
			created := event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Write != 0
			removed := event.Op&fsnotify.Remove != 0 || event.Op&fsnotify.Rename != 0

			w.mu.Lock()
			switch base {
			case "stop":
				if created {
					w.stopSignal = true
				}
			case "pause":
				if created {
					w.pauseSignal = true
				} else if removed {
					w.pauseSignal = false
				}
			}
			w.mu.Unlock()
		case <-w.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

// ShouldStop returns true if a stop signal has been received.
func (w *Watcher) ShouldStop() bool {
	// Also check the file directly in case the watcher missed it
	if _, err := os.Stat(filepath.Join(w.controlDir, "stop")); err == nil {
		w.mu.Lock()
		w.stopSignal = true
		w.mu.Unlock()
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stopSignal
}

// ShouldPause returns true while a pause signal is in effect.
func (w *Watcher) ShouldPause() bool {
	if _, err := os.Stat(filepath.Join(w.controlDir, "pause")); err == nil {
		w.mu.Lock()
		w.pauseSignal = true
		w.mu.Unlock()
	} else {
		w.mu.Lock()
		w.pauseSignal = false
		w.mu.Unlock()
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pauseSignal
}

// Wait implements the engine gate. It returns ErrStopped on a stop
// signal, blocks while paused, and honors context cancellation.
func (w *Watcher) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if w.ShouldStop() {
			return ErrStopped
		}
		if !w.ShouldPause() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// SendStop creates a stop signal file.
func (w *Watcher) SendStop() error {
	path := filepath.Join(w.controlDir, "stop")
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// SendPause creates a pause signal file.
func (w *Watcher) SendPause() error {
	path := filepath.Join(w.controlDir, "pause")
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// Resume removes the pause signal file.
func (w *Watcher) Resume() error {
	w.mu.Lock()
	w.pauseSignal = false
	w.mu.Unlock()
	err := os.Remove(filepath.Join(w.controlDir, "pause"))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// ClearSignals removes all signal files and resets signal state.
func (w *Watcher) ClearSignals() {
	w.mu.Lock()
	w.stopSignal = false
	w.pauseSignal = false
	w.mu.Unlock()

	os.Remove(filepath.Join(w.controlDir, "stop"))
	os.Remove(filepath.Join(w.controlDir, "pause"))
}

// Dir returns the control directory path.
func (w *Watcher) Dir() string {
	return w.controlDir
}

// Close shuts down the watcher.
func (w *Watcher) Close() {
	close(w.done)
	if w.watcher != nil {
		w.watcher.Close()
	}
}
