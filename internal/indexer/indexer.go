// Package indexer ingests resumes: it extracts text, inserts it through the matcher and stores
// the resume record.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/resumatch/internal/extract"
	"github.com/hyperjump/resumatch/internal/fileid"
	"github.com/hyperjump/resumatch/internal/matcher"
	"github.com/hyperjump/resumatch/internal/models"
	"github.com/hyperjump/resumatch/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrDuplicateID is returned when a resume id is already indexed. Indexed vectors are never updated.
	ErrDuplicateID = errors.New("resume id already indexed")
	// ErrFileNotFound is returned by IndexFile when the path does not exist.
	ErrFileNotFound = errors.New("resume file not found")
	// ErrNotRegularFile is returned by IndexFile for directories and other non-regular files.
	ErrNotRegularFile = errors.New("not a regular file")
)

const defaultConcurrency = 4

// Indexer ingests resumes into the matcher and the resume store.
type Indexer struct {
	storage     storage.Storage
	matcher     *matcher.Manager
	extractor   *extract.Extractor
	allowedExts []string
	concurrency int
	logger      *zap.Logger

	// mu makes the duplicate check and the insert atomic per id.
	mu sync.Mutex
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithAllowedExtensions restricts IndexDirectory to the given extensions.
func WithAllowedExtensions(exts []string) IndexerOption {
	return func(idx *Indexer) { idx.allowedExts = exts }
}

// WithConcurrency bounds concurrent extractions in IndexDirectory.
func WithConcurrency(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.concurrency = n
		}
	}
}

// NewIndexer creates an indexer. extractor may be nil; a default one is used.
func NewIndexer(store storage.Storage, m *matcher.Manager, extractor *extract.Extractor, opts ...IndexerOption) *Indexer {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	idx := &Indexer{
		storage:     store,
		matcher:     m,
		extractor:   extractor,
		concurrency: defaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexText inserts text under id and stores the resume record. An empty id gets a UUID.
// On matcher.ErrPersistence the resume is stored and queryable and the record is returned with the error.
func (idx *Indexer) IndexText(ctx context.Context, id, text, filePath string) (matcher.Record, error) {
	if id = strings.TrimSpace(id); id == "" {
		id = uuid.NewString()
	}
	text = Preprocess(text)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	exists, err := idx.storage.ResumeExists(ctx, id)
	if err != nil {
		return matcher.Record{}, fmt.Errorf("check resume: %w", err)
	}
	if exists {
		return matcher.Record{}, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	rec, insertErr := idx.matcher.Insert(ctx, text, id)
	if insertErr != nil && !errors.Is(insertErr, matcher.ErrPersistence) {
		return matcher.Record{}, insertErr
	}

	now := time.Now()
	resume := &models.Resume{ID: id, FilePath: filePath, Content: text, CreatedAt: now, UpdatedAt: now}
	if err := idx.storage.SaveResume(ctx, resume); err != nil {
		idx.logger.Error("resume indexed but record not stored", zap.String("resume_id", id), zap.Error(err))
		return rec, fmt.Errorf("store resume: %w", err)
	}
	idx.logger.Debug("resume stored", zap.String("resume_id", id), zap.Int("position", rec.Position))
	return rec, insertErr
}

// IndexFile extracts the file at path and indexes it. An empty id is derived from the absolute path,
// so a file is only ingested once.
func (idx *Indexer) IndexFile(ctx context.Context, path, id string) (matcher.Record, error) {
	absPath, err := idx.checkFile(path)
	if err != nil {
		return matcher.Record{}, err
	}
	if id == "" {
		id = fileid.FromPath(absPath)
	}
	if exists, err := idx.storage.ResumeExists(ctx, id); err != nil {
		return matcher.Record{}, fmt.Errorf("check resume: %w", err)
	} else if exists {
		return matcher.Record{}, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	text, err := idx.extractor.Extract(ctx, absPath)
	if err != nil {
		return matcher.Record{}, fmt.Errorf("extract %s: %w", filepath.Base(absPath), err)
	}
	return idx.IndexText(ctx, id, text, absPath)
}

// FileResult is the outcome of one file in IndexDirectory.
type FileResult struct {
	Path     string `json:"path"`
	ResumeID string `json:"resume_id,omitempty"`
	Position int    `json:"position"`
	Skipped  bool   `json:"skipped,omitempty"`
	Err      error  `json:"-"`
}

// IndexDirectory walks dir and indexes each regular file with an allowed extension. Files are
// extracted concurrently and inserted one at a time in walk order. Per-file failures are reported
// in the results; the error is only set when the walk itself fails or ctx ends.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string) ([]FileResult, error) {
	paths, err := idx.collectFiles(dir)
	if err != nil {
		return nil, err
	}

	results := make([]FileResult, len(paths))
	texts := make([]string, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)
	for i, p := range paths {
		results[i] = FileResult{Path: p, ResumeID: fileid.FromPath(p), Position: -1}
		g.Go(func() error {
			exists, err := idx.storage.ResumeExists(gctx, results[i].ResumeID)
			if err != nil {
				results[i].Err = err
				return nil
			}
			if exists {
				results[i].Skipped = true
				return nil
			}
			texts[i], results[i].Err = idx.extractor.Extract(gctx, p)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	for i := range results {
		r := &results[i]
		if r.Skipped || r.Err != nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		rec, err := idx.IndexText(ctx, r.ResumeID, texts[i], r.Path)
		if errors.Is(err, ErrDuplicateID) {
			r.Skipped = true
			continue
		}
		r.Position = rec.Position
		if err != nil && !errors.Is(err, matcher.ErrPersistence) {
			r.Err = err
			r.Position = -1
			continue
		}
		r.Err = err
		idx.logger.Info("resume file indexed", zap.String("path", r.Path), zap.Int("position", rec.Position))
	}
	return results, nil
}

func (idx *Indexer) collectFiles(dir string) ([]string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}
	var paths []string
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if !idx.accepts(path) {
			return nil
		}
		// Resolve symlinks so only regular files are indexed
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	return paths, err
}

func (idx *Indexer) checkFile(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, filepath.Base(absPath))
	}
	if err != nil {
		return "", fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrNotRegularFile, filepath.Base(absPath))
	}
	return absPath, nil
}

// accepts reports whether path has an allowed extension the extractor supports.
func (idx *Indexer) accepts(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	if len(idx.allowedExts) > 0 && !ExtensionAllowed(ext, idx.allowedExts) {
		return false
	}
	return idx.extractor.Supports(ext)
}

// ExtensionAllowed reports whether ext is in allowed, ignoring case and leading dots.
func ExtensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
