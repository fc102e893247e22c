// Package watch follows changes to Python sources under the project
// directories and reports them in debounced batches.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"github.com/l3aro/pyassist/internal/log"
	"github.com/l3aro/pyassist/internal/metrics"
	"github.com/l3aro/pyassist/internal/scanner"
	"github.com/l3aro/pyassist/pkg/cache"
)

// DefaultDebounce is how long a burst of events is collected before the
// callback runs.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches directory trees recursively.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	debounce   time.Duration
	excludes   []glob.Glob
	onChange   func([]string)
	logger     log.Logger
	callbackMu sync.Mutex

	pending   map[string]fsnotify.Op
	pendingMu sync.Mutex
	timer     *time.Timer
}

// New creates a Watcher. excludes are globs matched against base names of
// directories and files.
func New(debounce time.Duration, excludes []string, onChange func([]string), logger log.Logger) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = log.Default()
	}

	compiled := make([]glob.Glob, 0, len(excludes))
	for _, pattern := range excludes {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, g)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		excludes:  compiled,
		onChange:  onChange,
		logger:    logger,
		pending:   make(map[string]fsnotify.Op),
	}, nil
}

// Watch adds the trees rooted at paths and starts delivering events.
// Missing paths are skipped.
func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			w.logger.Debug("not watching missing directory", "path", path)
			continue
		}
		if err := w.watchRecursive(path); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != root && w.excluded(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}

		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			metrics.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.excluded(event.Name) {
						if err := w.watchRecursive(event.Name); err != nil {
							w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
						} else {
							w.enqueueExistingFiles(event.Name)
						}
					}
					continue
				}
			}

			if !w.relevant(event.Name) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.scheduleChange(event.Name, event.Op)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(path string, op fsnotify.Op) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] |= op

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.flushChanges()
	})
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	gone := 0
	for path, op := range w.pending {
		paths = append(paths, path)
		if op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			gone++
		}
	}
	if len(paths) > 0 {
		w.logger.Debug("module changes", "changed", len(paths), "gone", gone)
	}
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	if len(paths) > 0 {
		sort.Strings(paths)
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(paths)
	}
}

func (w *Watcher) excluded(path string) bool {
	base := filepath.Base(path)
	for _, g := range w.excludes {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// relevant reports whether path is a Python module not excluded by name.
func (w *Watcher) relevant(path string) bool {
	if !scanner.IsSourceFile(path) && !scanner.IsBinaryModule(path) {
		return false
	}
	return !w.excluded(path)
}

// Close stops watching. Pending changes are dropped.
func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}

func (w *Watcher) enqueueExistingFiles(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if !w.relevant(path) {
			return nil
		}
		w.scheduleChange(path, fsnotify.Create)
		return nil
	})
}

// Purger forgets memoized introspection results.
type Purger interface {
	Purge()
}

// Evictor returns a callback dropping changed files from the cache. Entries
// for modified files would be re-parsed anyway; removed and renamed ones
// would otherwise stay forever. A changed extension module also purges
// names, which may be nil.
func Evictor(c *cache.ModuleInfoCache, names Purger, logger log.Logger) func([]string) {
	return func(paths []string) {
		binary := false
		for _, path := range paths {
			c.Remove(path)
			binary = binary || scanner.IsBinaryModule(path)
		}
		if binary && names != nil {
			names.Purge()
		}
		logger.Debug("evicted changed modules", "count", len(paths), "binary", binary)
	}
}
