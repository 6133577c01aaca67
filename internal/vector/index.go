// Package vector provides the append-only vector index used for resume matching.
package vector

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrEmptyIndex is returned by Search when the index holds no vectors.
	ErrEmptyIndex = errors.New("vector index is empty")
	// ErrInvalidK is returned by Search when k is not positive.
	ErrInvalidK = errors.New("k must be positive")
	// ErrFAISSUnavailable is returned for FAISS indexes in builds without -tags=faiss.
	ErrFAISSUnavailable = errors.New("FAISS not available: build with -tags=faiss and install the FAISS C library")
)

// VectorIndex stores fixed-dimension vectors by insertion position and answers k-NN queries.
// Positions start at 0, grow by one per Add and are never reused.
type VectorIndex interface {
	Add(ctx context.Context, vector []float32) (int, error)
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	Save(path string) error
	Load(path string) error
	Reset() error
	Size() int
	Dimensions() int
	Metric() Metric
	Type() string
	Close() error
}

// Hit is a single search result: the position of the stored vector and its score.
type Hit struct {
	Position int
	Score    float64 // similarity for cosine (higher is better), squared distance for l2 (lower is better)
}

// Metric is the distance metric an index is created with.
type Metric string

const (
	// MetricCosine ranks by inner product over L2-normalized vectors.
	MetricCosine Metric = "cosine"
	// MetricL2 ranks by squared euclidean distance.
	MetricL2 Metric = "l2"
)

// ParseMetric returns the metric for name. Empty defaults to cosine.
func ParseMetric(name string) (Metric, error) {
	switch Metric(name) {
	case MetricCosine, "":
		return MetricCosine, nil
	case MetricL2:
		return MetricL2, nil
	default:
		return "", fmt.Errorf("unknown metric: %s (supported: cosine, l2)", name)
	}
}

// RequiresNormalization reports whether vectors must be L2-normalized before Add and Search.
func (m Metric) RequiresNormalization() bool {
	return m == MetricCosine
}

// Better reports whether score a ranks ahead of score b under the metric.
func (m Metric) Better(a, b float64) bool {
	if m == MetricL2 {
		return a < b
	}
	return a > b
}

func dimensionError(got, want int) error {
	return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, got, want)
}
