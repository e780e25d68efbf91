package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"barcode-tracker/internal/monitoring"
)

// Watcher polls a settings file and reloads it when its modification time
// moves forward. Invalid files are logged and skipped; the previous settings
// stay in effect.
type Watcher struct {
	path          string
	checkInterval time.Duration

	mu       sync.Mutex
	baseline time.Time
	stopCh   chan struct{}
	running  bool
	onChange func(*Settings)
}

// NewWatcher creates a watcher for path. The file must exist.
func NewWatcher(path string, checkInterval time.Duration) (*Watcher, error) {
	cleanPath := filepath.Clean(path)
	if realPath, err := filepath.EvalSymlinks(cleanPath); err == nil {
		cleanPath = realPath
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat settings file: %w", err)
	}
	if checkInterval <= 0 {
		checkInterval = time.Second
	}

	return &Watcher{
		path:          cleanPath,
		checkInterval: checkInterval,
		baseline:      info.ModTime(),
	}, nil
}

// OnChange sets the callback invoked with freshly loaded settings.
// The callback runs on the watcher goroutine.
func (w *Watcher) OnChange(callback func(*Settings)) {
	w.mu.Lock()
	w.onChange = callback
	w.mu.Unlock()
}

// Start begins polling in a background goroutine. Calling Start on a running
// watcher does nothing.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.stopCh = make(chan struct{})
	w.running = true
	go w.watchLoop(w.stopCh)
}

// Stop halts polling.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.stopCh)
	w.running = false
}

// Path returns the resolved path being watched.
func (w *Watcher) Path() string {
	return w.path
}

func (w *Watcher) watchLoop(stopCh chan struct{}) {
	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

// poll reloads the file if it changed since the last successful check.
func (w *Watcher) poll() {
	info, err := os.Stat(w.path)
	if err != nil {
		return
	}

	w.mu.Lock()
	if !info.ModTime().After(w.baseline) {
		w.mu.Unlock()
		return
	}
	w.baseline = info.ModTime()
	callback := w.onChange
	w.mu.Unlock()

	s, err := LoadSettings(w.path)
	if err != nil {
		monitoring.Logf("settings reload skipped: %v", err)
		return
	}
	monitoring.Logf("settings reloaded from %s", w.path)
	if callback != nil {
		callback(s)
	}
}
