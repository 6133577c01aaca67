// Package embedding turns resume and job description text into fixed-dimension vectors.
package embedding

import (
	"context"
	"errors"
)

// ErrDimensions is returned when a model produces a vector of unexpected length.
var ErrDimensions = errors.New("embedding has unexpected dimension")

// Embedder produces vector embeddings for text.
// Implementations are deterministic for a given model identity.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// ONNXConfig configures the local ONNX embedder.
type ONNXConfig struct {
	ModelPath  string
	VocabPath  string // WordPiece vocab.txt; hashed word ids when empty
	Dimensions int
	MaxTokens  int
	CacheSize  int
	// OutputName is the output tensor, "sentence_embedding" by default. "last_hidden_state"
	// outputs are mean-pooled over the attention mask.
	OutputName string
	// TokenTypeIDs feeds a token_type_ids input. BERT exports take it; MPNet exports do not.
	TokenTypeIDs bool
}

// meanPooledOutput is the per-token output of transformer exports without a pooling head.
const meanPooledOutput = "last_hidden_state"
