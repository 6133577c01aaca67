package vector

import (
	"fmt"
	"strings"
)

// IndexType names a VectorIndex implementation.
type IndexType string

const (
	// IndexTypeMemory searches every stored vector. Fine up to tens of thousands of resumes.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFAISS is a FAISS flat index. Needs cgo, libfaiss_c and -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// ParseIndexType resolves a configured index type. Empty means memory.
func ParseIndexType(name string) (IndexType, error) {
	switch t := IndexType(strings.ToLower(strings.TrimSpace(name))); t {
	case "":
		return IndexTypeMemory, nil
	case IndexTypeMemory, IndexTypeFAISS:
		return t, nil
	default:
		return "", fmt.Errorf("unknown index type: %s (supported: memory, faiss)", name)
	}
}

// NewVectorIndex creates an empty index. A FAISS request in a build without FAISS fails with
// ErrFAISSUnavailable.
func NewVectorIndex(indexType IndexType, dimensions int, metric Metric) (VectorIndex, error) {
	switch indexType {
	case IndexTypeMemory, "":
		return NewMemoryIndex(dimensions, metric)
	case IndexTypeFAISS:
		if !faissCompiled {
			return nil, ErrFAISSUnavailable
		}
		return NewFAISSIndex(dimensions, metric)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, faiss)", indexType)
	}
}

// FAISSCompiled reports whether this binary was built with FAISS support.
func FAISSCompiled() bool {
	return faissCompiled
}
