package matcher

import (
	"time"

	"github.com/hyperjump/resumatch/internal/vector"
	"go.uber.org/zap"
)

// Recorder receives operational measurements. internal/metrics provides the Prometheus implementation.
type Recorder interface {
	ObserveInsert(result string)
	ObserveQuery(result string, elapsed time.Duration)
	ObservePersistRetry(step string)
	SetSizes(indexSize, ledgerLen int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveInsert(string)               {}
func (nopRecorder) ObserveQuery(string, time.Duration) {}
func (nopRecorder) ObservePersistRetry(string)         {}
func (nopRecorder) SetSizes(int, int)                  {}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithSnapshotPath sets where the index snapshot is loaded from and saved to.
// An empty path keeps the index in memory only.
func WithSnapshotPath(path string) Option {
	return func(m *Manager) { m.snapshotPath = path }
}

// WithBackup sets the append-only embedding backup used by Rebuild.
func WithBackup(b *vector.Backup) Option {
	return func(m *Manager) { m.backup = b }
}

// WithMaxWords truncates insert and query text to n words before embedding. 0 disables truncation.
func WithMaxWords(n int) Option {
	return func(m *Manager) { m.maxWords = n }
}

// WithEmbedTimeout bounds each embedding call. 0 means no timeout.
func WithEmbedTimeout(d time.Duration) Option {
	return func(m *Manager) { m.embedTimeout = d }
}

// WithPersistTimeout bounds retries and backoff in the persistence step of one insertion. A write
// already running finishes before the insertion returns. 0 means no timeout.
func WithPersistTimeout(d time.Duration) Option {
	return func(m *Manager) { m.persistTimeout = d }
}

// WithPersistRetries sets how many times a failed persistence write is retried.
func WithPersistRetries(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.persistRetries = n
		}
	}
}

// WithPersistBackoff sets the delay before the first persistence retry; it doubles on each retry.
func WithPersistBackoff(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.persistBackoff = d
		}
	}
}
