// Package ledger keeps the ordered list of external resume ids aligned with vector index positions.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPositionOutOfRange is returned by Resolve for a position outside [0, Len).
var ErrPositionOutOfRange = errors.New("ledger position out of range")

// Store is the durable backing of a Ledger.
// AppendLedger must treat positions that are already stored as no-ops.
type Store interface {
	LoadLedger(ctx context.Context) ([]string, error)
	AppendLedger(ctx context.Context, start int, ids []string) error
}

// Ledger maps vector index position to external id. Position i is the i-th appended id.
type Ledger struct {
	store     Store
	ids       []string
	persisted int
	mu        sync.RWMutex
}

// New returns an empty ledger backed by store. store may be nil for an in-memory ledger.
func New(store Store) *Ledger {
	return &Ledger{store: store, ids: make([]string, 0)}
}

// Append adds id and returns its position.
func (l *Ledger) Append(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = append(l.ids, id)
	return len(l.ids) - 1
}

// Resolve returns the id stored at position.
func (l *Ledger) Resolve(position int) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if position < 0 || position >= len(l.ids) {
		return "", fmt.Errorf("%w: %d (len %d)", ErrPositionOutOfRange, position, len(l.ids))
	}
	return l.ids[position], nil
}

// Len returns the number of ids.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids)
}

// Pending returns how many appended ids have not been persisted yet.
func (l *Ledger) Pending() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids) - l.persisted
}

// IDs returns a copy of the full ordered sequence.
func (l *Ledger) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.ids))
	copy(out, l.ids)
	return out
}

// Load replaces the in-memory sequence with the stored one.
func (l *Ledger) Load(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	ids, err := l.store.LoadLedger(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = append(make([]string, 0, len(ids)), ids...)
	l.persisted = len(ids)
	return nil
}

// Persist writes the ids appended since the last successful Persist.
func (l *Ledger) Persist(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	l.mu.RLock()
	start := l.persisted
	delta := append([]string(nil), l.ids[start:]...)
	l.mu.RUnlock()
	if len(delta) == 0 {
		return nil
	}
	if err := l.store.AppendLedger(ctx, start, delta); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	l.mu.Lock()
	if start+len(delta) > l.persisted {
		l.persisted = start + len(delta)
	}
	l.mu.Unlock()
	return nil
}
