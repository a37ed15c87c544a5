// Package watcher reports changes to the sources of a build so the build
// can be repeated.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/archive"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/logging"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches source directories and reports batches of changed paths.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	paths    map[string]bool
	ignored  map[string]bool
	mu       sync.RWMutex
	closed   bool
	log      *logging.Logger
}

// New creates a new Watcher. A debounce of zero uses DefaultDebounce.
func New(debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		watcher:  fsw,
		debounce: debounce,
		paths:    make(map[string]bool),
		ignored:  make(map[string]bool),
		log:      logging.Get("watcher"),
	}, nil
}

// Ignore drops events for the given files, typically the archive the
// build writes.
func (w *Watcher) Ignore(paths ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			w.ignored[abs] = true
		}
	}
}

// WatchEntries watches the sources of a file list. Directories are watched
// recursively; for a file its parent directory is watched.
func (w *Watcher) WatchEntries(entries []archive.Entry) error {
	for _, e := range entries {
		info, err := os.Stat(e.Source)
		if err != nil {
			w.log.Debug("source not watchable", "path", e.Source, "error", err)
			continue
		}
		dir := e.Source
		if !info.IsDir() {
			dir = filepath.Dir(e.Source)
			if err := w.addWatch(dir); err != nil {
				return err
			}
			continue
		}
		if err := w.Watch(dir); err != nil {
			return err
		}
	}
	return nil
}

// Watch starts watching a directory recursively. Symlinks are not followed.
func (w *Watcher) Watch(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	info, err := os.Lstat(absRoot)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Skip entries with errors
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			return w.addWatch(path)
		}
		return nil
	})
}

func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}
	if err := w.watcher.Add(path); err != nil {
		w.log.Warn("failed to add watch", "path", path, "error", err)
		return err
	}
	w.paths[path] = true
	return nil
}

// Paths returns the watched directories sorted.
func (w *Watcher) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]string, 0, len(w.paths))
	for p := range w.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Run delivers changed paths to onChange once no event has arrived for the
// debounce window. It blocks until the context is cancelled or the watcher
// is closed. Chmod-only events and ignored files are dropped.
func (w *Watcher) Run(ctx context.Context, onChange func(changed []string)) {
	pending := make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.accept(event) {
				continue
			}
			pending[event.Name] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)
			w.log.Debug("sources changed", "paths", len(changed))
			if onChange != nil {
				onChange(changed)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

// accept filters an event and keeps new directories watched.
func (w *Watcher) accept(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}

	w.mu.RLock()
	ignored := w.ignored[event.Name]
	w.mu.RUnlock()
	if ignored {
		return false
	}

	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			_ = w.Watch(event.Name)
		}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.forget(event.Name)
	}
	return true
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for p := range w.paths {
		if p == path || isSubPath(p, path) {
			_ = w.watcher.Remove(p)
			delete(w.paths, p)
		}
	}
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.paths = make(map[string]bool)
	return w.watcher.Close()
}

// isSubPath checks if path is under parent directory.
func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}
