package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// snapshotMagic identifies a MemoryIndex snapshot file.
var snapshotMagic = [4]byte{'R', 'M', 'V', 'I'}

const snapshotVersion uint32 = 1

// snapshotHeader follows the magic. Count vectors of Dimensions float32 values come after it.
type snapshotHeader struct {
	Version    uint32
	Metric     uint8
	Dimensions uint32
	Count      uint32
}

// ErrCorruptSnapshot is returned by Load when a snapshot exists but cannot be decoded.
var ErrCorruptSnapshot = errors.New("corrupt vector index snapshot")

// MemoryIndex is an in-memory flat vector index using exact brute-force search.
// Vectors are kept in insertion order so the slice offset is the position.
type MemoryIndex struct {
	dimensions int
	metric     Metric
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension and metric.
func NewMemoryIndex(dimensions int, metric Metric) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if metric == "" {
		metric = MetricCosine
	}
	if _, err := ParseMetric(string(metric)); err != nil {
		return nil, err
	}
	return &MemoryIndex{
		dimensions: dimensions,
		metric:     metric,
		vectors:    make([][]float32, 0),
	}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Metric returns the metric the index was created with.
func (m *MemoryIndex) Metric() Metric {
	return m.metric
}

// Dimensions returns the vector dimension.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Add appends a copy of vector and returns its position.
func (m *MemoryIndex) Add(ctx context.Context, vector []float32) (int, error) {
	if len(vector) != m.dimensions {
		return 0, dimensionError(len(vector), m.dimensions)
	}
	vec := make([]float32, m.dimensions)
	copy(vec, vector)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors = append(m.vectors, vec)
	return len(m.vectors) - 1, nil
}

// Search returns up to k hits ordered best-first for the index metric.
// Ties are broken by ascending position so repeated queries return identical results.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != m.dimensions {
		return nil, dimensionError(len(query), m.dimensions)
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.vectors) == 0 {
		return nil, ErrEmptyIndex
	}
	hits := make([]Hit, len(m.vectors))
	for i, vec := range m.vectors {
		hits[i] = Hit{Position: i, Score: score(m.metric, query, vec)}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].Position < hits[j].Position
		}
		return m.metric.Better(hits[i].Score, hits[j].Score)
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Vector returns a copy of the vector stored at position.
func (m *MemoryIndex) Vector(position int) ([]float32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if position < 0 || position >= len(m.vectors) {
		return nil, false
	}
	out := make([]float32, m.dimensions)
	copy(out, m.vectors[position])
	return out, true
}

// Reset removes every vector.
func (m *MemoryIndex) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors = make([][]float32, 0)
	return nil
}

// Save writes the snapshot to path atomically (temp file and rename). Directory is created if needed.
// Format: magic (4), version (4), metric (1), dimension (4), n (4), then n*dimension float32 values.
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	return writeFileAtomic(path, func(w io.Writer) error {
		if _, err := w.Write(snapshotMagic[:]); err != nil {
			return fmt.Errorf("write magic: %w", err)
		}
		header := snapshotHeader{snapshotVersion, metricCode(m.metric), uint32(m.dimensions), uint32(len(m.vectors))}
		if err := binary.Write(w, binary.LittleEndian, header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		for _, vec := range m.vectors {
			if _, err := w.Write(float32SliceToBytes(vec)); err != nil {
				return fmt.Errorf("write vector: %w", err)
			}
		}
		return nil
	})
}

// Load reads the snapshot at path and replaces the in-memory contents.
// A missing file leaves the index unchanged and is not an error; a file that exists but
// cannot be decoded, or was written with another dimension or metric, is.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat index file: %w", err)
	}
	r := bufio.NewReader(f)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != snapshotMagic {
		return fmt.Errorf("%w: bad magic in %s", ErrCorruptSnapshot, path)
	}
	var header snapshotHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("%w: read header: %v", ErrCorruptSnapshot, err)
	}
	if header.Version != snapshotVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, header.Version)
	}
	if int(header.Dimensions) != m.dimensions {
		return fmt.Errorf("%w: file has %d, index expects %d", ErrDimensionMismatch, header.Dimensions, m.dimensions)
	}
	metric, ok := metricFromCode(header.Metric)
	if !ok {
		return fmt.Errorf("%w: unknown metric code %d", ErrCorruptSnapshot, header.Metric)
	}
	if metric != m.metric {
		return fmt.Errorf("metric mismatch: file has %s, index expects %s", metric, m.metric)
	}
	// The count is checked against the file size before anything is allocated from it.
	want := int64(len(snapshotMagic)) + int64(binary.Size(header)) + int64(header.Count)*int64(m.dimensions)*4
	if info.Size() != want {
		return fmt.Errorf("%w: header claims %d vectors (%d bytes), file has %d bytes",
			ErrCorruptSnapshot, header.Count, want, info.Size())
	}

	vectors := make([][]float32, 0, header.Count)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < header.Count; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("%w: read vector %d: %v", ErrCorruptSnapshot, i, err)
		}
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors = vectors
	return nil
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}

func metricCode(m Metric) uint8 {
	if m == MetricL2 {
		return 1
	}
	return 0
}

func metricFromCode(c uint8) (Metric, bool) {
	switch c {
	case 0:
		return MetricCosine, true
	case 1:
		return MetricL2, true
	default:
		return "", false
	}
}

// writeFileAtomic writes through a temp file in the same directory and renames it over path.
func writeFileAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	w := bufio.NewWriter(tmp)
	if err := write(w); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
