// Package watcher reports changes to configuration files so cached values
// can be dropped while a process keeps running.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"dase/internal/config"
)

// DefaultDebounce collapses the burst of events an editor produces on save
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches files for changes
type Watcher struct {
	mu       sync.Mutex
	files    map[string]bool
	onChange func(path string)
	debounce time.Duration
}

// New creates a new file watcher. A nil onChange only logs changes.
func New(onChange func(path string), paths ...string) *Watcher {
	if onChange == nil {
		onChange = func(string) {}
	}
	w := &Watcher{
		files:    make(map[string]bool),
		onChange: onChange,
		debounce: DefaultDebounce,
	}
	for _, p := range paths {
		w.Add(p)
	}
	return w
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Add registers a file. Files added after Watch started are picked up only
// when their directory is already watched.
func (w *Watcher) Add(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		logrus.Debugf("cannot watch %s: %v", path, err)
		return
	}
	w.mu.Lock()
	w.files[abs] = true
	w.mu.Unlock()
}

// Files returns the number of registered files
func (w *Watcher) Files() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.files)
}

func (w *Watcher) watched(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[path]
}

// Watch starts watching the registered files.
// It blocks until the context is cancelled or an error occurs.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// Watch the directories so files replaced by editors are still seen
	w.mu.Lock()
	dirs := make(map[string]bool)
	for file := range w.files {
		dirs[filepath.Dir(file)] = true
	}
	w.mu.Unlock()

	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			logrus.Warnf("failed to watch directory %s: %v", dir, err)
			continue
		}
		logrus.Debugf("watching %s", dir)
	}

	timers := make(map[string]*time.Timer)
	defer func() {
		for _, timer := range timers {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}

			abs, err := filepath.Abs(event.Name)
			if err != nil || !w.watched(abs) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				if timer, exists := timers[abs]; exists {
					timer.Stop()
				}
				timers[abs] = time.AfterFunc(w.debounce, func() {
					logrus.Infof("file changed: %s", abs)
					w.onChange(abs)
				})
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logrus.Warnf("watcher error: %v", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Invalidator returns a change callback that drops the manager's cache
// entries resolved from the changed file
func Invalidator(m *config.Manager) func(path string) {
	return func(path string) {
		if n := m.InvalidateFile(path); n > 0 {
			logrus.Debugf("dropped %d cached configuration(s) from %s", n, path)
		}
	}
}
