package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/satishbabariya/coconutdal/internal/debug"
)

// DefaultDebounce is the quiet period after a write before reloading.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads a configuration file when it changes.
type Watcher struct {
	file     string
	debounce time.Duration
	onChange func(*Config)
	watcher  *fsnotify.Watcher
	done     chan struct{}

	mu      sync.RWMutex
	current *Config
}

// NewWatcher loads file and prepares to watch it. onChange, if not nil, is
// called after every successful reload.
func NewWatcher(file string, onChange func(*Config)) (*Watcher, error) {
	absPath, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	cfg, err := Load(absPath)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// Editors often replace the file, so the directory is watched instead.
	if err := fw.Add(filepath.Dir(absPath)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	return &Watcher{
		file:     absPath,
		debounce: DefaultDebounce,
		onChange: onChange,
		watcher:  fw,
		done:     make(chan struct{}),
		current:  cfg,
	}, nil
}

// Config returns the most recently loaded configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

func (w *Watcher) loop() {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if path, err := filepath.Abs(event.Name); err == nil && path == w.file {
				timer.Reset(w.debounce)
				fire = timer.C
			}

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			debug.Warn("config: watch error", "error", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.file)
	if err != nil {
		// The previous configuration stays in effect.
		debug.Warn("config: reload failed", "file", w.file, "error", err)
		return
	}
	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()
	debug.Info("config: reloaded", "file", w.file)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

// Stop stops watching the file
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}
