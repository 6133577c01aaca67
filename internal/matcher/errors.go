package matcher

import (
	"errors"

	"github.com/hyperjump/resumatch/internal/vector"
)

var (
	// ErrEmptyText is returned by Insert for blank or extraction-error text. Nothing is embedded.
	ErrEmptyText = errors.New("resume text is empty")
	// ErrEmptyID is returned by Insert when the external id is blank.
	ErrEmptyID = errors.New("resume id is empty")
	// ErrEmptyQuery is returned by Query for blank query text.
	ErrEmptyQuery = errors.New("query text is empty")
	// ErrEmbedding means the embedder failed, timed out or returned the wrong dimension. No state changed.
	ErrEmbedding = errors.New("embedding failed")
	// ErrIndex means the vector index rejected an add or search. The ledger is unchanged.
	ErrIndex = errors.New("vector index operation failed")
	// ErrLedger means a vector was added but its id could not be recorded at the same position.
	// The index and ledger have diverged until Rebuild runs.
	ErrLedger = errors.New("identity ledger append failed")
	// ErrPersistence means the record is in memory but may not survive a restart.
	ErrPersistence = errors.New("persistence failed")
	// ErrNoBackup is returned by Rebuild when no embedding backup is configured.
	ErrNoBackup = errors.New("embedding backup not configured")
)

// Result labels reported to the Recorder.
const (
	resultOK          = "ok"
	resultEmptyText   = "empty_text"
	resultEmptyQuery  = "empty_query"
	resultEmptyIndex  = "empty_index"
	resultEmbedding   = "embedding_error"
	resultIndex       = "index_error"
	resultLedger      = "ledger_error"
	resultPersistence = "persistence_error"
	resultInvalid     = "invalid"
)

func resultLabel(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, ErrEmptyText):
		return resultEmptyText
	case errors.Is(err, ErrEmptyQuery):
		return resultEmptyQuery
	case errors.Is(err, vector.ErrEmptyIndex):
		return resultEmptyIndex
	case errors.Is(err, ErrEmbedding):
		return resultEmbedding
	case errors.Is(err, ErrIndex):
		return resultIndex
	case errors.Is(err, ErrLedger):
		return resultLedger
	case errors.Is(err, ErrPersistence):
		return resultPersistence
	default:
		return resultInvalid
	}
}
