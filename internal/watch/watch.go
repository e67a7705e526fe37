// Package watch implements the file watcher: a debounced stream of
// filesystem events that re-indexes and re-validates one file at a
// time. Debouncing is per path rather than a single project-wide
// window: a timer per path, reset on every new event, firing after a
// quiet period, so a burst of saves on one file never delays another.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sentinel-dev/sentinel/internal/config"
	"github.com/sentinel-dev/sentinel/internal/engine"
	"github.com/sentinel-dev/sentinel/internal/errs"
	"github.com/sentinel-dev/sentinel/internal/indexer"
	"github.com/sentinel-dev/sentinel/internal/types"
)

// DefaultDebounce is the per-path coalescing window.
const DefaultDebounce = 15 * time.Second

var skipDirs = map[string]bool{
	".git": true, ".sentinel": true, "node_modules": true,
	"vendor": true, "target": true, "dist": true,
}

// Watcher is the single-writer monitor loop: one goroutine drains
// fsnotify events and performs indexing serially; read queries
// from other commands coordinate through the store's own mutex instead.
type Watcher struct {
	root     string
	cfg      *config.Config
	indexer  *indexer.Indexer
	engine   *engine.Engine
	debounce time.Duration

	fsw *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer

	// PreviousContent is the external regression hook. Optional.
	PreviousContent func(relPath string) (string, bool)

	// OnResult is invoked after every re-validated file. Required for
	// the watcher to be useful; nil means results are silently dropped.
	OnResult func(relPath string, violations []types.Violation, err error)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Watcher rooted at root. The caller owns ix/eng and must
// keep them alive for the Watcher's lifetime.
func New(root string, cfg *config.Config, ix *indexer.Indexer, eng *engine.Engine) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("start fsnotify watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		root:     root,
		cfg:      cfg,
		indexer:  ix,
		engine:   eng,
		debounce: DefaultDebounce,
		fsw:      fsw,
		timers:   map[string]*time.Timer{},
		ctx:      ctx,
		cancel:   cancel,
	}
	return w, nil
}

// SetDebounce overrides the per-path coalescing window (tests use a
// shorter one than the 15-second production window).
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Start adds every non-ignored directory under root to the watch set
// and begins draining events in a background goroutine.
func (w *Watcher) Start() error {
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if skipDirs[d.Name()] || (strings.HasPrefix(d.Name(), ".") && path != w.root) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
	if err != nil {
		return fmt.Errorf("watch directory tree: %w", err)
	}

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop cancels the event loop, stops any pending debounce timers
// without running them, and closes the underlying fsnotify watcher.
func (w *Watcher) Stop() {
	w.cancel()
	w.wg.Wait()

	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = map[string]*time.Timer{}
	w.mu.Unlock()

	w.fsw.Close()
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case <-w.fsw.Errors:
			// Surfaced nowhere else; a per-file event error never
			// aborts monitoring.
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	ext := extensionOf(rel)
	if !w.cfg.HasExtension(ext) {
		return
	}

	w.scheduleRebuild(rel)
}

// scheduleRebuild resets rel's per-path timer.
func (w *Watcher) scheduleRebuild(rel string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[rel]; ok {
		t.Stop()
	}
	w.timers[rel] = time.AfterFunc(w.debounce, func() { w.processFile(rel) })
}

// processFile handles one coalesced change: re-index, fetch the
// previous-content hook, then re-validate.
func (w *Watcher) processFile(rel string) {
	w.mu.Lock()
	delete(w.timers, rel)
	w.mu.Unlock()

	absPath := filepath.Join(w.root, filepath.FromSlash(rel))
	content, err := os.ReadFile(absPath)
	if err != nil {
		if w.OnResult != nil {
			w.OnResult(rel, nil, errs.NewIOError("read", absPath, err))
		}
		return
	}

	if w.indexer != nil {
		if err := w.indexer.IndexFile(w.ctx, rel, content); err != nil {
			if w.OnResult != nil {
				w.OnResult(rel, nil, err)
			}
			return
		}
	}

	if w.PreviousContent != nil {
		w.PreviousContent(rel) // external regression hook; result is for downstream LLM analysis, out of scope here
	}

	if w.engine == nil {
		return
	}
	violations, err := w.engine.ValidateFile(w.ctx, rel, content)
	if w.OnResult != nil {
		w.OnResult(rel, violations, err)
	}
}

func extensionOf(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 || idx == len(path)-1 {
		return ""
	}
	return path[idx+1:]
}
