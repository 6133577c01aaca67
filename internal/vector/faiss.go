//go:build faiss && cgo
// +build faiss,cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/index_io_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"unsafe"
)

const faissCompiled = true

// FAISSIndex is a flat FAISS index. Cosine uses IndexFlatIP over normalized vectors,
// l2 uses IndexFlatL2. FAISS labels are sequential and equal the insertion position.
type FAISSIndex struct {
	index      *C.FaissIndex
	dimensions int
	metric     Metric
	mu         sync.RWMutex
}

// NewFAISSIndex creates a flat FAISS index with the given dimension and metric.
func NewFAISSIndex(dimensions int, metric Metric) (*FAISSIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if metric == "" {
		metric = MetricCosine
	}
	index, err := newFlatIndex(dimensions, metric)
	if err != nil {
		return nil, err
	}
	return &FAISSIndex{index: index, dimensions: dimensions, metric: metric}, nil
}

func newFlatIndex(dimensions int, metric Metric) (*C.FaissIndex, error) {
	switch metric {
	case MetricL2:
		var flat *C.FaissIndexFlatL2
		if ret := C.faiss_IndexFlatL2_new_with(&flat, C.idx_t(dimensions)); ret != 0 {
			return nil, fmt.Errorf("failed to create FAISS index: %s", faissLastError())
		}
		return (*C.FaissIndex)(unsafe.Pointer(flat)), nil
	case MetricCosine:
		var flat *C.FaissIndexFlatIP
		if ret := C.faiss_IndexFlatIP_new_with(&flat, C.idx_t(dimensions)); ret != 0 {
			return nil, fmt.Errorf("failed to create FAISS index: %s", faissLastError())
		}
		return (*C.FaissIndex)(unsafe.Pointer(flat)), nil
	default:
		return nil, fmt.Errorf("unknown metric: %s", metric)
	}
}

func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Add appends vector and returns its position.
func (f *FAISSIndex) Add(ctx context.Context, vector []float32) (int, error) {
	if len(vector) != f.dimensions {
		return 0, dimensionError(len(vector), f.dimensions)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	position := int(C.faiss_Index_ntotal(f.index))
	ret := C.faiss_Index_add(f.index, 1, (*C.float)(unsafe.Pointer(&vector[0])))
	if ret != 0 {
		return 0, fmt.Errorf("failed to add vector to FAISS index: %s", faissLastError())
	}
	return position, nil
}

// Search returns up to k hits; FAISS already orders them best-first for the index metric.
func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != f.dimensions {
		return nil, dimensionError(len(query), f.dimensions)
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	ntotal := int(C.faiss_Index_ntotal(f.index))
	if ntotal == 0 {
		return nil, ErrEmptyIndex
	}
	if k > ntotal {
		k = ntotal
	}

	distances := make([]float32, k)
	labels := make([]int64, k)
	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(k),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}

	hits := make([]Hit, 0, k)
	for i := 0; i < k; i++ {
		if labels[i] < 0 {
			continue
		}
		hits = append(hits, Hit{Position: int(labels[i]), Score: float64(distances[i])})
	}
	return hits, nil
}

// Reset removes every vector.
func (f *FAISSIndex) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ret := C.faiss_Index_reset(f.index); ret != 0 {
		return fmt.Errorf("failed to reset FAISS index: %s", faissLastError())
	}
	return nil
}

// Save writes the FAISS native file to path atomically.
func (f *FAISSIndex) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".tmp"
	cPath := C.CString(tmp)
	defer C.free(unsafe.Pointer(cPath))
	if ret := C.faiss_write_index_fname(f.index, cPath); ret != 0 {
		return fmt.Errorf("failed to save FAISS index: %s", faissLastError())
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Load reads the FAISS file at path. A missing file is not an error.
func (f *FAISSIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	var loaded *C.FaissIndex
	if ret := C.faiss_read_index_fname(cPath, 0, &loaded); ret != 0 {
		return fmt.Errorf("%w: %s", ErrCorruptSnapshot, faissLastError())
	}
	if d := int(C.faiss_Index_d(loaded)); d != f.dimensions {
		C.faiss_Index_free(loaded)
		return fmt.Errorf("%w: file has %d, index expects %d", ErrDimensionMismatch, d, f.dimensions)
	}
	wantType := C.METRIC_INNER_PRODUCT
	if f.metric == MetricL2 {
		wantType = C.METRIC_L2
	}
	if C.faiss_Index_metric_type(loaded) != C.FaissMetricType(wantType) {
		C.faiss_Index_free(loaded)
		return fmt.Errorf("metric mismatch: snapshot was not written with %s", f.metric)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		C.faiss_Index_free(f.index)
	}
	f.index = loaded
	return nil
}

// Size returns the number of vectors.
func (f *FAISSIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return int(C.faiss_Index_ntotal(f.index))
}

// Dimensions returns the vector dimension.
func (f *FAISSIndex) Dimensions() int { return f.dimensions }

// Metric returns the metric the index was created with.
func (f *FAISSIndex) Metric() Metric { return f.metric }

// Close frees the FAISS index resources.
func (f *FAISSIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}
