// Package watch reports changes to scene files so a render can be re-run.
package watch

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change lists the watched files modified during one debounce window.
type Change struct {
	Paths []string
}

// Config configures the file watcher.
type Config struct {
	// Files are the files to watch. Their directories are watched so that
	// editors that save by renaming a temporary file are seen too.
	Files []string

	// Ignore patterns are matched against the base name of changed files.
	Ignore []string

	// Debounce is the quiet period before a change is reported.
	Debounce time.Duration
}

// DefaultIgnore contains editor temp-file patterns.
var DefaultIgnore = []string{
	"*.tmp",
	"*.swp",
	"*~",
	".#*",
}

// Watcher monitors files for changes.
type Watcher struct {
	config   Config
	fsw      *fsnotify.Watcher
	files    map[string]bool
	onChange func(Change)
	onError  func(error)

	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer
}

// New creates a watcher for the configured files.
func New(config Config) (*Watcher, error) {
	if config.Debounce == 0 {
		config.Debounce = 200 * time.Millisecond
	}
	if len(config.Ignore) == 0 {
		config.Ignore = DefaultIgnore
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		config:  config,
		fsw:     fsw,
		files:   make(map[string]bool),
		pending: make(map[string]bool),
	}

	dirs := make(map[string]bool)
	for _, f := range config.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// OnChange sets the callback for file changes. It runs on a timer
// goroutine, one call at a time.
func (w *Watcher) OnChange(fn func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// OnError sets the callback for watcher errors.
func (w *Watcher) OnError(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

// Start delivers changes until ctx is done or the watcher is closed.
func (w *Watcher) Start(ctx context.Context) error {
	defer w.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.record(ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.mu.Lock()
			fn := w.onError
			w.mu.Unlock()
			if fn != nil {
				fn(err)
			}
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.stopTimer()
	return w.fsw.Close()
}

func (w *Watcher) record(name string) {
	abs, err := filepath.Abs(name)
	if err != nil || !w.files[abs] || w.shouldIgnore(abs) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[abs] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.config.Debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	fn := w.onChange
	w.mu.Unlock()

	sort.Strings(paths)
	if fn != nil {
		fn(Change{Paths: paths})
	}
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// shouldIgnore checks the base name against the ignore patterns.
func (w *Watcher) shouldIgnore(path string) bool {
	name := filepath.Base(path)
	for _, pattern := range w.config.Ignore {
		if name == pattern {
			return true
		}
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}
