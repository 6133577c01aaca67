// Package watcher watches inbox directories with fsnotify and indexes resumes dropped into them.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hyperjump/resumatch/internal/indexer"
	"github.com/hyperjump/resumatch/internal/matcher"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Ingester indexes one resume file. An empty id asks the ingester to derive one from the path.
type Ingester interface {
	IndexFile(ctx context.Context, path, id string) (matcher.Record, error)
}

// Stats counts inbox outcomes since Start.
type Stats struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Watcher indexes new files under its roots. Resumes are never updated or deleted:
// rewrites of an indexed file are skipped and removals are only logged.
type Watcher struct {
	roots      []string
	extensions []string
	recursive  bool
	debounce   time.Duration
	ingester   Ingester
	logger     *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	pending map[string]*time.Timer
	stats   Stats
	ctx     context.Context
	done    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithExtensions limits the watcher to files with these extensions. Empty means all.
func WithExtensions(exts []string) Option {
	return func(w *Watcher) { w.extensions = exts }
}

// WithRecursive watches subdirectories of each root.
func WithRecursive(recursive bool) Option {
	return func(w *Watcher) { w.recursive = recursive }
}

// WithDebounce sets how long a file must be quiet before it is indexed.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher creates a watcher over roots that hands files to ingester.
func NewWatcher(roots []string, ingester Ingester, opts ...Option) *Watcher {
	w := &Watcher{
		roots:    roots,
		debounce: defaultDebounce,
		ingester: ingester,
		logger:   zap.NewNop(),
		pending:  make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start creates missing roots, begins watching and returns. Watching ends when ctx is
// cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, root := range w.roots {
		if err := w.addRoot(fsw, root); err != nil {
			_ = fsw.Close()
			return err
		}
	}
	w.fsw = fsw
	w.ctx = ctx
	w.done = make(chan struct{})
	w.started = true
	w.logger.Info("inbox watcher started",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive))

	w.wg.Add(1)
	go w.run(ctx, fsw, w.done)
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, done <-chan struct{}) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			go w.Stop()
			return
		case <-done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("inbox watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	path := ev.Name
	if !w.underRoot(path) {
		return
	}
	w.logger.Debug("inbox event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			if ev.Has(fsnotify.Create) && w.recursive {
				w.handleNewDirectory(fsw, path)
			}
			return
		}
		if matchExtension(path, w.extensions) {
			w.schedule(path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancel(path)
		if matchExtension(path, w.extensions) {
			w.logger.Info("resume file left the inbox; its index entry is kept", zap.String("path", path))
		}
	}
}

// handleNewDirectory watches a directory created or moved under a root and indexes its files.
func (w *Watcher) handleNewDirectory(fsw *fsnotify.Watcher, dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				w.logger.Warn("failed to watch directory", zap.String("path", path), zap.Error(err))
			}
			return nil
		}
		if matchExtension(path, w.extensions) {
			w.schedule(path)
		}
		return nil
	})
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		ctx := w.ctx
		w.mu.Unlock()
		w.ingest(ctx, path)
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	if ctx == nil || ctx.Err() != nil {
		return
	}
	rec, err := w.ingester.IndexFile(ctx, path, "")
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case err == nil:
		w.stats.Indexed++
		w.logger.Info("inbox resume indexed",
			zap.String("path", path), zap.String("resume_id", rec.ExternalID), zap.Int("position", rec.Position))
	case errors.Is(err, indexer.ErrDuplicateID):
		w.stats.Skipped++
		w.logger.Debug("inbox resume already indexed", zap.String("path", path))
	case errors.Is(err, matcher.ErrPersistence):
		w.stats.Indexed++
		w.logger.Warn("inbox resume indexed but not persisted", zap.String("path", path), zap.Error(err))
	default:
		w.stats.Failed++
		w.logger.Error("inbox resume failed", zap.String("path", path), zap.Error(err))
	}
}

// SyncExisting indexes files already present under the roots. Files indexed earlier are skipped.
func (w *Watcher) SyncExisting(ctx context.Context) {
	for _, root := range w.Directories() {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() {
				if path != root && !w.recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if matchExtension(path, w.extensions) {
				w.ingest(ctx, path)
			}
			return nil
		})
	}
}

// Directories returns the watched roots.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// Stats returns the outcome counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Stop stops watching and drops files still waiting on the debounce.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	fsw := w.fsw
	w.fsw = nil
	close(w.done)
	w.mu.Unlock()

	_ = fsw.Close()
	w.wg.Wait()
}

func (w *Watcher) addRoot(fsw *fsnotify.Watcher, root string) error {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}
	if !w.recursive {
		return fsw.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) underRoot(path string) bool {
	clean := filepath.Clean(path)
	for _, root := range w.roots {
		if inDir(filepath.Clean(root), clean) {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}
