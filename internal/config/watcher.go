// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG HOT RELOAD
// =============================================================================

// reloadDebounce coalesces rapid editor write bursts into a single reload.
const reloadDebounce = 250 * time.Millisecond

// Watcher reloads the global configuration when the config file changes on
// disk. Editors typically replace the file (write temp + rename), so the
// watcher monitors the config directory rather than the file itself.
type Watcher struct {
	fsw      *fsnotify.Watcher
	onReload func(*Config)

	mu      sync.Mutex
	pending *time.Timer
	done    chan struct{}
	stopped bool
}

// NewWatcher creates a watcher over the Gandalf config directory.
// onReload may be nil; when set it is called after each successful reload.
func NewWatcher(onReload func(*Config)) (*Watcher, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		fsw:      fsw,
		onReload: onReload,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !isConfigFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "Warning: config watcher error: %v\n", err)

		case <-w.done:
			return
		}
	}
}

func isConfigFile(path string) bool {
	base := filepath.Base(path)
	return base == "config.toml" || base == "config.json"
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(reloadDebounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config reload failed: %v\n", err)
		return
	}
	SetGlobal(cfg)
	if w.onReload != nil {
		w.onReload(cfg)
	}
}

// Stop shuts down the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	if w.pending != nil {
		w.pending.Stop()
	}
	close(w.done)
	w.fsw.Close()
}
