// Package watch re-runs a comparison when the compared files change.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/panbanda/sift/pkg/config"
	"github.com/panbanda/sift/pkg/tokenizer"
)

// Watcher monitors source files and reports batches of changed paths once
// they have been quiet for the debounce period.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    *config.Config
	language  tokenizer.Language
	debounce  time.Duration
	logger    *slog.Logger
	// dirs are watched recursively, files are watched through their parent.
	dirs     []string
	files    map[string]bool
	callback func(changed []string)
	mu       sync.Mutex
	pending  map[string]time.Time
}

// NewWatcher creates a watcher for the given files and directories.
func NewWatcher(paths []string, cfg *config.Config, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	lang, err := tokenizer.ParseLanguage(cfg.Similarity.Language)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		config:   cfg,
		language: lang,
		debounce: debounce,
		logger:   logger,
		files:    make(map[string]bool),
		pending:  make(map[string]time.Time),
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			w.dirs = append(w.dirs, abs)
		} else {
			w.files[abs] = true
		}
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w.fsWatcher = fsWatcher
	return w, nil
}

// OnChange sets the function called with every batch of changed paths.
// Batches are delivered one at a time.
func (w *Watcher) OnChange(cb func(changed []string)) {
	w.callback = cb
}

// Start registers the watches and processes events until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	for _, dir := range w.dirs {
		if err := w.addTree(dir); err != nil {
			return err
		}
	}
	for file := range w.files {
		if err := w.fsWatcher.Add(filepath.Dir(file)); err != nil {
			return err
		}
	}

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// addTree watches dir and every directory below it that is not excluded.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && slices.Contains(w.config.Exclude.Dirs, d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// handleEvent records a change to a compared file.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	path := event.Name

	if event.Op&fsnotify.Create != 0 && w.underDir(path) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addTree(path); err != nil {
				w.logger.Warn("cannot watch directory", "path", path, "error", err)
			}
			return
		}
	}

	if !w.tracks(path) {
		return
	}

	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// tracks reports whether path is part of the comparison.
func (w *Watcher) tracks(path string) bool {
	if w.files[path] {
		return true
	}
	if !w.underDir(path) {
		return false
	}
	if w.config.ShouldExclude(path) {
		return false
	}
	return tokenizer.Covers(w.language, path)
}

func (w *Watcher) underDir(path string) bool {
	for _, dir := range w.dirs {
		rel, err := filepath.Rel(dir, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// processDebounced delivers ready batches until ctx is done.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.flush()
		}
	}
}

// takeReady returns the pending paths, sorted, once the most recent change
// is older than the debounce period. Otherwise it returns nil and keeps them.
func (w *Watcher) takeReady() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	ready := make([]string, 0, len(w.pending))
	for path, lastMod := range w.pending {
		if now.Sub(lastMod) < w.debounce {
			return nil
		}
		ready = append(ready, path)
	}
	clear(w.pending)
	slices.Sort(ready)
	return ready
}

// flush runs the callback for the ready batch, if any.
func (w *Watcher) flush() {
	ready := w.takeReady()
	if len(ready) == 0 || w.callback == nil {
		return
	}
	w.callback(ready)
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedDirs returns the directories currently watched.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}
