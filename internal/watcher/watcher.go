// Package watcher watches the persisted token file and reloads it when an
// external process rewrites it, so two cooperating processes sharing one
// credential converge on the freshest token without redundant refreshes.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// debounceDelay coalesces the create/write/rename bursts an atomic file
// replace produces into a single reload.
const debounceDelay = 200 * time.Millisecond

// Reloader is the manager-side hook invoked after a change is detected. The
// implementation must only read the file; writing back would create a
// watch loop.
type Reloader interface {
	ReloadFromStore()
}

// TokenFileWatcher watches the directory containing the token file. The
// directory rather than the file itself is watched because atomic renames
// replace the inode the original watch was attached to.
type TokenFileWatcher struct {
	path     string
	reloader Reloader

	mu      sync.Mutex
	timer   *time.Timer
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

// NewTokenFileWatcher constructs a watcher for the token file at path.
func NewTokenFileWatcher(path string, reloader Reloader) *TokenFileWatcher {
	return &TokenFileWatcher{path: filepath.Clean(path), reloader: reloader}
}

// Start begins watching until ctx is cancelled or Stop is called.
func (w *TokenFileWatcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err = fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.watcher = fsw
	w.cancel = cancel
	w.mu.Unlock()

	go w.loop(ctx, fsw)
	log.Debugf("watching token file %s", w.path)
	return nil
}

// Stop terminates the watcher.
func (w *TokenFileWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if w.watcher != nil {
		_ = w.watcher.Close()
		w.watcher = nil
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *TokenFileWatcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.Warnf("token file watcher error: %v", err)
		}
	}
}

func (w *TokenFileWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounceDelay, func() {
		log.Debugf("token file %s changed externally, reloading", w.path)
		w.reloader.ReloadFromStore()
	})
}
