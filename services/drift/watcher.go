// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package drift

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the reference-statistics artifact when it changes on
// disk, so retraining events update the serving baseline without a restart.
//
// # Description
//
// The watcher observes the artifact's parent directory (editors and
// pipeline writers typically replace files via rename, which would drop a
// watch on the file itself). Write and create events for the artifact path
// are debounced, then the artifact is re-read and atomically swapped into
// the Store. A malformed artifact is logged and ignored; the previous
// snapshot stays live.
//
// # Thread Safety
//
// Safe for concurrent use. Reloads happen from a single goroutine; readers
// of the Store are never blocked.
type Watcher struct {
	store    *Store
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a Watcher for the given artifact path, feeding the
// given Store. A zero debounce defaults to 250ms.
func NewWatcher(store *Store, path string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		store:    store,
		path:     path,
		debounce: debounce,
		watcher:  fsw,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Stop shuts the watcher down. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("statistics watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	stats, err := LoadReferenceStatistics(w.path)
	if err != nil {
		slog.Error("reference statistics reload failed, keeping previous snapshot",
			"path", w.path, "error", err)
		return
	}
	if err := w.store.Replace(stats); err != nil {
		slog.Error("reference statistics rejected, keeping previous snapshot",
			"path", w.path, "error", err)
		return
	}
	slog.Info("reference statistics reloaded", "path", w.path, "features", len(stats))
}
