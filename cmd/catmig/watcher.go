package main

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"catmig/internal/logging"
)

// fileWatcher reruns a migration whenever one of its input documents
// settles after a change. Editors often save by rename, so the parent
// directories are watched and events are filtered by file name.
type fileWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	files       map[string]bool
	debounceMap map[string]time.Time
	debounceDur time.Duration
	rerun       func(ctx context.Context)
}

func newFileWatcher(files []string, debounce time.Duration, rerun func(ctx context.Context)) (*fileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	fw := &fileWatcher{
		watcher:     w,
		files:       make(map[string]bool),
		debounceMap: make(map[string]time.Time),
		debounceDur: debounce,
		rerun:       rerun,
	}

	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			w.Close()
			return nil, err
		}
		fw.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, err
		}
		logging.Watch("watching %s", dir)
	}
	return fw, nil
}

// Run blocks until ctx is done, rerunning once up front.
func (fw *fileWatcher) Run(ctx context.Context) {
	defer fw.watcher.Close()

	fw.rerun(ctx)

	tick := fw.debounceDur / 2
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	debounceTicker := time.NewTicker(tick)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Watch("watcher stopped")
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.WatchWarn("watch error: %v", err)

		case <-debounceTicker.C:
			fw.processDebouncedEvents(ctx)
		}
	}
}

func (fw *fileWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	name, err := filepath.Abs(event.Name)
	if err != nil || !fw.files[name] {
		return
	}
	logging.Get(logging.CategoryWatch).Debug("%s %s", event.Op, name)

	fw.mu.Lock()
	fw.debounceMap[name] = time.Now()
	fw.mu.Unlock()
}

// processDebouncedEvents reruns once if any file has been quiet for the
// debounce window.
func (fw *fileWatcher) processDebouncedEvents(ctx context.Context) {
	fw.mu.Lock()
	now := time.Now()
	settled := false
	for path, at := range fw.debounceMap {
		if now.Sub(at) >= fw.debounceDur {
			settled = true
			delete(fw.debounceMap, path)
		}
	}
	fw.mu.Unlock()

	if settled {
		fw.rerun(ctx)
	}
}
