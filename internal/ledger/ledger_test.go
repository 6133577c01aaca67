package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	rows    map[int]string
	calls   int
	failing int
}

func newMemStore() *memStore { return &memStore{rows: map[int]string{}} }

func (s *memStore) LoadLedger(ctx context.Context) ([]string, error) {
	out := make([]string, len(s.rows))
	for pos, id := range s.rows {
		out[pos] = id
	}
	return out, nil
}

func (s *memStore) AppendLedger(ctx context.Context, start int, ids []string) error {
	s.calls++
	if s.failing > 0 {
		s.failing--
		return errors.New("disk full")
	}
	for i, id := range ids {
		if _, ok := s.rows[start+i]; !ok {
			s.rows[start+i] = id
		}
	}
	return nil
}

func TestLedger_AppendResolve(t *testing.T) {
	l := New(nil)
	assert.Equal(t, 0, l.Append("r1"))
	assert.Equal(t, 1, l.Append("r2"))
	assert.Equal(t, 2, l.Len())

	id, err := l.Resolve(1)
	require.NoError(t, err)
	assert.Equal(t, "r2", id)

	_, err = l.Resolve(2)
	assert.ErrorIs(t, err, ErrPositionOutOfRange)
	_, err = l.Resolve(-1)
	assert.ErrorIs(t, err, ErrPositionOutOfRange)
}

func TestLedger_PersistDelta(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	l := New(store)

	l.Append("a")
	l.Append("b")
	require.NoError(t, l.Persist(ctx))
	assert.Equal(t, 0, l.Pending())
	assert.Equal(t, 1, store.calls)

	// nothing new: no store call
	require.NoError(t, l.Persist(ctx))
	assert.Equal(t, 1, store.calls)

	l.Append("c")
	require.NoError(t, l.Persist(ctx))
	assert.Equal(t, map[int]string{0: "a", 1: "b", 2: "c"}, store.rows)
}

func TestLedger_PersistFailureKeepsPending(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.failing = 1
	l := New(store)

	l.Append("a")
	require.Error(t, l.Persist(ctx))
	assert.Equal(t, 1, l.Pending())

	require.NoError(t, l.Persist(ctx))
	assert.Equal(t, 0, l.Pending())
	assert.Equal(t, "a", store.rows[0])
}

func TestLedger_Load(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.rows[0] = "x"
	store.rows[1] = "y"

	l := New(store)
	require.NoError(t, l.Load(ctx))
	assert.Equal(t, []string{"x", "y"}, l.IDs())
	assert.Equal(t, 0, l.Pending())

	assert.Equal(t, 2, l.Append("z"))
	assert.Equal(t, 1, l.Pending())
}
