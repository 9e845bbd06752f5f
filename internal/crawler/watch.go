package crawler

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yungbote/unifind-backend/internal/platform/logger"
)

// Watcher turns filesystem activity under the configured roots into crawl
// triggers, coalescing bursts per root.
type Watcher struct {
	log      *logger.Logger
	fsw      *fsnotify.Watcher
	roots    []string
	exclude  Exclusions
	debounce time.Duration
	trigger  func(root string)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewWatcher(log *logger.Logger, roots []string, exclude Exclusions, debounce time.Duration, trigger func(root string)) (*Watcher, error) {
	if trigger == nil {
		return nil, fmt.Errorf("trigger required")
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w := &Watcher{
		log:      log.With("component", "LocalWatcher"),
		fsw:      fsw,
		exclude:  exclude,
		debounce: debounce,
		trigger:  trigger,
		timers:   map[string]*time.Timer{},
	}
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			continue
		}
		w.roots = append(w.roots, abs)
	}
	// Longest first so nested roots win in rootFor.
	sort.Slice(w.roots, func(i, j int) bool { return len(w.roots[i]) > len(w.roots[j]) })
	for _, r := range w.roots {
		w.addTree(r)
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.exclude.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Debug("watch add failed", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) rootFor(path string) (string, bool) {
	for _, r := range w.roots {
		if path == r || strings.HasPrefix(path, r+string(filepath.Separator)) {
			return r, true
		}
	}
	return "", false
}

// excluded reports whether any element below root is filtered by name.
func (w *Watcher) excluded(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return true
	}
	parts := strings.Split(rel, string(filepath.Separator))
	for i, p := range parts {
		if i == len(parts)-1 {
			return w.exclude.SkipFile(p) || w.exclude.SkipDir(p)
		}
		if w.exclude.SkipDir(p) {
			return true
		}
	}
	return false
}

func (w *Watcher) schedule(root string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[root]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[root] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, root)
		w.mu.Unlock()
		w.trigger(root)
	})
}

// Run consumes events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			root, ok := w.rootFor(ev.Name)
			if !ok || w.excluded(root, ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					w.addTree(ev.Name)
				}
			}
			w.schedule(root)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	for root, t := range w.timers {
		t.Stop()
		delete(w.timers, root)
	}
	w.mu.Unlock()
	_ = w.fsw.Close()
}
