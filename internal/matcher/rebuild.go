package matcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/resumatch/internal/vector"
	"go.uber.org/zap"
)

// vectorSource is implemented by indexes that can return stored vectors (MemoryIndex).
type vectorSource interface {
	Vector(position int) ([]float32, bool)
}

// Load reads the ledger and index snapshot and reconciles them. The ledger is authoritative:
// vectors past its length are dropped, and a missing, corrupt or short snapshot is rebuilt from
// the embedding backup when the backup covers every ledger position. Divergence that cannot be
// repaired is logged and left visible through Consistency.
func (m *Manager) Load(ctx context.Context) error {
	m.insertMu.Lock()
	defer m.insertMu.Unlock()
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	if err := m.ledger.Load(ctx); err != nil {
		return err
	}
	m.unbacked = nil
	n := m.ledger.Len()

	snapErr := m.index.Load(m.snapshotPath)
	if snapErr != nil {
		if !errors.Is(snapErr, vector.ErrCorruptSnapshot) || !m.backupCovers(n) {
			return fmt.Errorf("load index snapshot: %w", snapErr)
		}
		m.logger.Warn("index snapshot unreadable, rebuilding from embedding backup",
			zap.String("path", m.snapshotPath), zap.Error(snapErr))
	}

	if snapErr != nil || m.index.Size() != n {
		if m.backupCovers(n) {
			m.logger.Warn("index and ledger diverged, rebuilding index",
				zap.Int("index_size", m.index.Size()), zap.Int("ledger_len", n))
			if err := m.rebuildLocked(ctx, n); err != nil {
				return err
			}
		} else {
			m.logger.Error("index and ledger diverged and the embedding backup cannot repair it",
				zap.Int("index_size", m.index.Size()), zap.Int("ledger_len", n))
		}
	}

	if err := m.syncBackup(n); err != nil {
		m.logger.Warn("embedding backup out of sync", zap.Error(err))
	}

	m.updateSizes()
	m.logger.Info("resume index loaded",
		zap.Int("index_size", m.index.Size()),
		zap.Int("ledger_len", n),
		zap.String("metric", string(m.index.Metric())),
		zap.String("type", m.index.Type()))
	return nil
}

// Rebuild recreates the index from the embedding backup, one vector per ledger position,
// and saves a fresh snapshot.
func (m *Manager) Rebuild(ctx context.Context) error {
	m.insertMu.Lock()
	defer m.insertMu.Unlock()
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	n := m.ledger.Len()
	if m.backup == nil {
		return ErrNoBackup
	}
	if err := m.flushBackup(); err != nil {
		return fmt.Errorf("rebuild: flush backup: %w", err)
	}
	if err := m.rebuildLocked(ctx, n); err != nil {
		return err
	}
	if err := m.syncBackup(n); err != nil {
		return err
	}
	m.updateSizes()
	return nil
}

// rebuildLocked requires insertMu and stateMu to be held.
func (m *Manager) rebuildLocked(ctx context.Context, n int) error {
	if m.backup == nil {
		return ErrNoBackup
	}
	vecs, err := m.backup.Vectors(n)
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	if err := m.index.Reset(); err != nil {
		return fmt.Errorf("rebuild: reset index: %w", err)
	}
	for i, v := range vecs {
		if m.index.Metric().RequiresNormalization() {
			v = vector.Normalize(v)
		}
		if _, err := m.index.Add(ctx, v); err != nil {
			return fmt.Errorf("rebuild: add position %d: %w", i, err)
		}
	}
	if m.snapshotPath != "" {
		if err := m.index.Save(m.snapshotPath); err != nil {
			return fmt.Errorf("rebuild: save snapshot: %w", err)
		}
	}
	m.logger.Info("index rebuilt from embedding backup", zap.Int("vectors", n))
	return nil
}

// syncBackup trims backup records past the ledger and, when the index can return its vectors,
// backfills records the backup is missing.
func (m *Manager) syncBackup(n int) error {
	if m.backup == nil {
		return nil
	}
	if m.backup.Len() > n {
		return m.backup.Truncate(n)
	}
	src, ok := m.index.(vectorSource)
	if !ok || m.index.Size() < n {
		if m.backup.Len() < n {
			return fmt.Errorf("backup holds %d of %d vectors", m.backup.Len(), n)
		}
		return nil
	}
	for pos := m.backup.Len(); pos < n; pos++ {
		v, ok := src.Vector(pos)
		if !ok {
			return fmt.Errorf("index has no vector at %d", pos)
		}
		if err := m.backup.Append(pos, v); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) backupCovers(n int) bool {
	return m.backup != nil && m.backup.Len() >= n
}
