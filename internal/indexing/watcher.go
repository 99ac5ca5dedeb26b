package indexing

import (
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/groovy-lsp-index/internal/obslog"
)

var watcherLog = obslog.For("watcher")

// ChangeHandler is invoked once per debounced file change, in the order the
// debounce window drains them.
type ChangeHandler func(path string)

// Watcher adapts fsnotify into a debounced, exclude-aware source of
// changed-file notifications, the shape the Indexer Orchestrator's
// updateFile expects to be driven by (spec.md §6's FileWatcher collaborator).
type Watcher struct {
	fsw     *fsnotify.Watcher
	exclude []string
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]time.Time
	timer   *time.Timer

	handler ChangeHandler

	done chan struct{}
}

// NewWatcher creates a Watcher rooted at root, recursively watching every
// non-excluded directory, debouncing bursts of events within debounce.
func NewWatcher(root string, exclude []string, debounce time.Duration, handler ChangeHandler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		exclude:  exclude,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		handler:  handler,
		done:     make(chan struct{}),
	}

	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	go w.run()

	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr == nil && matchesAny(w.exclude, filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if matchesAny(w.exclude, filepath.ToSlash(event.Name)) {
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			watcherLog.Warnf("watch error: %v", err)
		case <-w.done:
			return
		}
	}
}

// schedule debounces path: repeated events within the debounce window
// collapse into one dispatched change, matching the teacher's
// batch-after-quiet-period approach to filesystem churn.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]time.Time)
	w.mu.Unlock()

	for _, p := range paths {
		w.handler(p)
	}
}

// Close stops watching and releases the underlying fsnotify handle.
func (w *Watcher) Close() error {
	close(w.done)
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}
