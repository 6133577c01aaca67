package embedding

import (
	"context"
	"math"
	"strings"
	"unicode"
)

// MockEmbedder is a deterministic embedder for tests and for running without a model.
// It hashes lowercased words into buckets, so texts sharing words get similar vectors.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a unit-length bag-of-words embedding for text.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := HashString(w)
		sign := float32(1)
		if (h/e.dimensions)%2 == 1 {
			sign = -1
		}
		emb[h%e.dimensions] += sign
	}
	var sum float64
	for _, v := range emb {
		sum += float64(v * v)
	}
	if sum == 0 {
		// Blank text still gets a valid, deterministic vector.
		emb[0], sum = 1, 1
	}
	norm := 1.0 / math.Sqrt(sum)
	for i := range emb {
		emb[i] *= float32(norm)
	}
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
