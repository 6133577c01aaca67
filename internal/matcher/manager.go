// Package matcher owns the resume vector index and identity ledger and answers k-NN match queries.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/resumatch/internal/embedding"
	"github.com/hyperjump/resumatch/internal/ledger"
	"github.com/hyperjump/resumatch/internal/vector"
	"go.uber.org/zap"
)

const (
	defaultPersistRetries = 3
	defaultPersistBackoff = 100 * time.Millisecond
)

// errorMarker prefixes text that the extraction layer produced in place of a failure.
const errorMarker = "[Error"

// Record is a committed insertion.
type Record struct {
	Position   int    `json:"position"`
	ExternalID string `json:"resume_id"`
}

// Match is one ranked query result.
type Match struct {
	ExternalID string  `json:"resume_id"`
	Score      float64 `json:"score"`
	Position   int     `json:"position"`
}

// Consistency compares index and ledger cardinality.
type Consistency struct {
	IndexSize  int  `json:"index_size"`
	LedgerLen  int  `json:"ledger_len"`
	BackupLen  int  `json:"backup_len"` // -1 when no backup is configured
	Pending    int  `json:"pending_ledger"`
	Consistent bool `json:"consistent"`
}

// Divergence is IndexSize minus LedgerLen.
func (c Consistency) Divergence() int {
	return c.IndexSize - c.LedgerLen
}

// Manager coordinates the embedder, vector index and identity ledger.
// Insertions are serialized by insertMu. stateMu is held for writing only while a vector and its id
// are appended, and for reading while a query searches and resolves, so queries never see a
// vector without its id.
type Manager struct {
	embedder embedding.Embedder
	index    vector.VectorIndex
	ledger   *ledger.Ledger
	backup   *vector.Backup

	snapshotPath   string
	maxWords       int
	embedTimeout   time.Duration
	persistTimeout time.Duration
	persistRetries int
	persistBackoff time.Duration

	logger   *zap.Logger
	recorder Recorder

	// unbacked holds committed vectors not yet written to the backup, oldest first.
	// Guarded by insertMu.
	unbacked []backupRecord

	insertMu sync.Mutex
	stateMu  sync.RWMutex
}

// New creates a Manager. The embedder and index must agree on the dimension.
func New(embedder embedding.Embedder, index vector.VectorIndex, led *ledger.Ledger, opts ...Option) (*Manager, error) {
	if embedder == nil || index == nil || led == nil {
		return nil, fmt.Errorf("embedder, index and ledger are required")
	}
	if embedder.Dimensions() != index.Dimensions() {
		return nil, fmt.Errorf("%w: embedder produces %d, index expects %d",
			vector.ErrDimensionMismatch, embedder.Dimensions(), index.Dimensions())
	}
	m := &Manager{
		embedder:       embedder,
		index:          index,
		ledger:         led,
		persistRetries: defaultPersistRetries,
		persistBackoff: defaultPersistBackoff,
		logger:         zap.NewNop(),
		recorder:       nopRecorder{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Insert embeds text and appends it under id. On ErrPersistence the returned Record is valid
// and queryable, but may be lost on restart.
func (m *Manager) Insert(ctx context.Context, text, id string) (rec Record, err error) {
	defer func() { m.recorder.ObserveInsert(resultLabel(err)) }()

	if strings.TrimSpace(id) == "" {
		return Record{}, ErrEmptyID
	}
	if !usableText(text) {
		return Record{}, ErrEmptyText
	}

	m.insertMu.Lock()
	defer m.insertMu.Unlock()

	vec, err := m.embed(ctx, text)
	if err != nil {
		return Record{}, err
	}

	m.stateMu.Lock()
	position, err := m.index.Add(ctx, vec)
	if err != nil {
		m.stateMu.Unlock()
		m.logger.Error("vector index rejected embedding", zap.String("resume_id", id), zap.Error(err))
		return Record{}, fmt.Errorf("%w: %w", ErrIndex, err)
	}
	ledgerPos := m.ledger.Append(id)
	m.stateMu.Unlock()
	if m.backup != nil {
		m.unbacked = append(m.unbacked, backupRecord{position: position, vec: vec})
	}

	rec = Record{Position: position, ExternalID: id}
	if ledgerPos != position {
		m.logger.Error("ledger position diverged from index position",
			zap.String("resume_id", id),
			zap.Int("index_position", position),
			zap.Int("ledger_position", ledgerPos))
		m.updateSizes()
		return rec, fmt.Errorf("%w: id %q landed at %d, vector at %d", ErrLedger, id, ledgerPos, position)
	}

	perr := m.persist(ctx)
	m.updateSizes()
	if perr != nil {
		m.logger.Error("resume indexed in memory but not persisted",
			zap.String("resume_id", id), zap.Int("position", position), zap.Error(perr))
		return rec, fmt.Errorf("%w: %w", ErrPersistence, perr)
	}

	m.logger.Info("resume indexed", zap.String("resume_id", id), zap.Int("position", position))
	return rec, nil
}

// Query returns up to k matches for text, best first.
// It fails with vector.ErrEmptyIndex when nothing has been indexed yet.
func (m *Manager) Query(ctx context.Context, text string, k int) (matches []Match, err error) {
	start := time.Now()
	defer func() { m.recorder.ObserveQuery(resultLabel(err), time.Since(start)) }()

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		return nil, vector.ErrInvalidK
	}
	if m.Size() == 0 {
		return nil, vector.ErrEmptyIndex
	}

	vec, err := m.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	m.stateMu.RLock()
	defer m.stateMu.RUnlock()

	hits, err := m.index.Search(ctx, vec, k)
	if err != nil {
		if errors.Is(err, vector.ErrEmptyIndex) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrIndex, err)
	}

	matches = make([]Match, 0, len(hits))
	for _, h := range hits {
		id, err := m.ledger.Resolve(h.Position)
		if err != nil {
			m.logger.Warn("skipping unresolvable index position", zap.Int("position", h.Position), zap.Error(err))
			continue
		}
		matches = append(matches, Match{ExternalID: id, Score: h.Score, Position: h.Position})
	}
	m.logger.Debug("match query", zap.Int("k", k), zap.Int("hits", len(matches)))
	return matches, nil
}

// Size returns the number of vectors in the index.
func (m *Manager) Size() int {
	return m.index.Size()
}

// LedgerLen returns the number of ids in the ledger.
func (m *Manager) LedgerLen() int {
	return m.ledger.Len()
}

// Metric returns the index metric.
func (m *Manager) Metric() vector.Metric {
	return m.index.Metric()
}

// IndexType returns the index implementation name.
func (m *Manager) IndexType() string {
	return m.index.Type()
}

// Consistency reports the current index, ledger and backup sizes.
func (m *Manager) Consistency() Consistency {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	c := Consistency{
		IndexSize: m.index.Size(),
		LedgerLen: m.ledger.Len(),
		BackupLen: -1,
		Pending:   m.ledger.Pending(),
	}
	if m.backup != nil {
		c.BackupLen = m.backup.Len()
	}
	c.Consistent = c.IndexSize == c.LedgerLen && c.Pending == 0
	return c
}

// Close releases the index and the backup file. The embedder belongs to the caller.
func (m *Manager) Close() error {
	m.insertMu.Lock()
	defer m.insertMu.Unlock()
	var errs []error
	if err := m.index.Close(); err != nil {
		errs = append(errs, err)
	}
	if m.backup != nil {
		if err := m.backup.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// embed truncates, embeds, checks the dimension and normalizes for the index metric.
func (m *Manager) embed(ctx context.Context, text string) ([]float32, error) {
	text = embedding.TruncateText(text, m.maxWords)

	ectx := ctx
	if m.embedTimeout > 0 {
		var cancel context.CancelFunc
		ectx, cancel = context.WithTimeout(ctx, m.embedTimeout)
		defer cancel()
	}

	var vec []float32
	err := runWithContext(ectx, func() error {
		var err error
		vec, err = m.embedder.Embed(ectx, text)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(vec) != m.index.Dimensions() {
		return nil, fmt.Errorf("%w: %w: got %d, expected %d",
			ErrEmbedding, vector.ErrDimensionMismatch, len(vec), m.index.Dimensions())
	}
	if m.index.Metric().RequiresNormalization() {
		return vector.Normalize(vec), nil
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, nil
}

func (m *Manager) updateSizes() {
	m.recorder.SetSizes(m.index.Size(), m.ledger.Len())
}

// runWithContext runs fn and returns early with ctx.Err() if ctx ends first.
// fn keeps running in the background in that case; its result is discarded.
func runWithContext(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func usableText(text string) bool {
	t := strings.TrimSpace(text)
	return t != "" && !strings.HasPrefix(t, errorMarker)
}
