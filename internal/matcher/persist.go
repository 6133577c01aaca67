package matcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type persistStep struct {
	name string
	run  func(ctx context.Context) error
}

type backupRecord struct {
	position int
	vec      []float32
}

// persist flushes the snapshot, the unbacked vectors and the ledger delta, in that order.
// The ledger goes last so a stored id always has a stored vector behind it. Each step writes
// everything still outstanding, so an insertion that failed to persist is caught up by the next.
// Steps run on the caller's goroutine with insertMu held; the timeout stops retries and backoff
// but never abandons a write in progress.
func (m *Manager) persist(ctx context.Context) error {
	if m.persistTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.persistTimeout)
		defer cancel()
	}

	steps := make([]persistStep, 0, 3)
	if m.snapshotPath != "" {
		steps = append(steps, persistStep{"snapshot", func(context.Context) error {
			return m.index.Save(m.snapshotPath)
		}})
	}
	if m.backup != nil {
		steps = append(steps, persistStep{"backup", func(context.Context) error {
			return m.flushBackup()
		}})
	}
	steps = append(steps, persistStep{"ledger", m.ledger.Persist})

	for _, step := range steps {
		if err := m.withRetry(ctx, step); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return nil
}

// flushBackup appends unbacked vectors in position order. Records already in the backup are
// skipped by Backup.Append, so a partially flushed queue can be retried. Requires insertMu.
func (m *Manager) flushBackup() error {
	for len(m.unbacked) > 0 {
		rec := m.unbacked[0]
		if err := m.backup.Append(rec.position, rec.vec); err != nil {
			return err
		}
		m.unbacked = m.unbacked[1:]
	}
	m.unbacked = nil
	return nil
}

// withRetry runs step up to persistRetries+1 times with exponential backoff.
func (m *Manager) withRetry(ctx context.Context, step persistStep) error {
	delay := m.persistBackoff
	var lastErr error
	for attempt := 0; attempt <= m.persistRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return err
		}
		lastErr = step.run(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if attempt < m.persistRetries {
			m.recorder.ObservePersistRetry(step.name)
			m.logger.Warn("persist failed, retrying",
				zap.String("step", step.name),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", delay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
