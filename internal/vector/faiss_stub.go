//go:build !faiss || !cgo
// +build !faiss !cgo

package vector

import "context"

const faissCompiled = false

// FAISSIndex is a stub that returns an error when FAISS is not available.
// Build with -tags=faiss to enable FAISS support.
type FAISSIndex struct{}

// NewFAISSIndex returns an error because FAISS is not available.
func NewFAISSIndex(dimensions int, metric Metric) (*FAISSIndex, error) {
	return nil, ErrFAISSUnavailable
}

// Add is not implemented without FAISS.
func (f *FAISSIndex) Add(ctx context.Context, vector []float32) (int, error) {
	return 0, ErrFAISSUnavailable
}

// Search is not implemented without FAISS.
func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	return nil, ErrFAISSUnavailable
}

// Save is not implemented without FAISS.
func (f *FAISSIndex) Save(path string) error {
	return ErrFAISSUnavailable
}

// Load is not implemented without FAISS.
func (f *FAISSIndex) Load(path string) error {
	return ErrFAISSUnavailable
}

// Reset is not implemented without FAISS.
func (f *FAISSIndex) Reset() error {
	return ErrFAISSUnavailable
}

// Size returns 0 without FAISS.
func (f *FAISSIndex) Size() int { return 0 }

// Dimensions returns 0 without FAISS.
func (f *FAISSIndex) Dimensions() int { return 0 }

// Metric returns the default metric without FAISS.
func (f *FAISSIndex) Metric() Metric { return MetricCosine }

// Close is a no-op without FAISS.
func (f *FAISSIndex) Close() error { return nil }

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}
