package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const watcherDebounce = 500 * time.Millisecond

// watcher calls a callback with a changed path if any of watched
// files is written, created or renamed. Events are debounced: a burst
// of writes gives a single callback per file.
type watcher struct {
	fsWatcher *fsnotify.Watcher
	files     map[string]bool
	callback  func(path string)
}

func (w *watcher) Run(ctx context.Context) {
	defer w.fsWatcher.Close()

	timer := time.NewTimer(watcherDebounce)
	timer.Stop()

	defer timer.Stop()

	pending := map[string]bool{}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			path := filepath.Clean(event.Name)

			if !w.files[path] || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			log.Debug().Str("path", path).Stringer("op", event.Op).Msg("File has been changed")

			pending[path] = true

			timer.Reset(watcherDebounce)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}

			log.Warn().Err(err).Msg("File watcher has failed")
		case <-timer.C:
			for path := range pending {
				w.callback(path)
			}

			pending = map[string]bool{}
		}
	}
}

// newWatcher watches parent directories of given files: a file which
// is replaced by rename keeps being tracked this way.
func newWatcher(callback func(path string), files ...string) (*watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("cannot create fs watcher: %w", err)
	}

	rv := &watcher{
		fsWatcher: fsWatcher,
		files:     map[string]bool{},
		callback:  callback,
	}
	dirs := map[string]bool{}

	for _, v := range files {
		path, err := filepath.Abs(v)
		if err != nil {
			fsWatcher.Close()

			return nil, fmt.Errorf("incorrect path %s: %w", v, err)
		}

		rv.files[path] = true
		dirs[filepath.Dir(path)] = true
	}

	for dir := range dirs {
		if err := fsWatcher.Add(dir); err != nil {
			fsWatcher.Close()

			return nil, fmt.Errorf("cannot watch %s: %w", dir, err)
		}
	}

	return rv, nil
}
