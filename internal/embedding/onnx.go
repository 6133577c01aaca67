//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEmbedder runs a sentence-transformer export with ONNX Runtime. It requires CGO and the
// onnxruntime shared library.
type ONNXEmbedder struct {
	session    *ort.AdvancedSession
	dimensions int
	maxTokens  int
	meanPool   bool
	cache      *EmbeddingCache
	tokenizer  Tokenizer

	// Bound to the session; Embed rewrites inputs in place and reads the output.
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64] // nil unless the model takes token_type_ids
	output        *ort.Tensor[float32]
	mu            sync.Mutex
}

// NewONNXEmbedder creates an ONNX embedder. InitializeEnvironment is called if not already done.
func NewONNXEmbedder(cfg ONNXConfig) (*ONNXEmbedder, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("onnx model path is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 256
	}
	outputName := cfg.OutputName
	if outputName == "" {
		outputName = "sentence_embedding"
	}

	var tokenizer Tokenizer = &SimpleTokenizer{}
	if cfg.VocabPath != "" {
		wp, err := LoadWordPieceTokenizer(cfg.VocabPath)
		if err != nil {
			return nil, err
		}
		tokenizer = wp
	}

	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	e := &ONNXEmbedder{
		dimensions: cfg.Dimensions,
		maxTokens:  maxTokens,
		meanPool:   outputName == meanPooledOutput,
		cache:      NewEmbeddingCache(cfg.CacheSize),
		tokenizer:  tokenizer,
	}
	if err := e.bind(cfg, outputName); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

func (e *ONNXEmbedder) bind(cfg ONNXConfig, outputName string) error {
	shape := ort.NewShape(1, int64(e.maxTokens))
	var err error
	if e.inputIDs, err = ort.NewEmptyTensor[int64](shape); err != nil {
		return fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if e.attentionMask, err = ort.NewEmptyTensor[int64](shape); err != nil {
		return fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	inputNames := []string{"input_ids", "attention_mask"}
	inputs := []ort.ArbitraryTensor{e.inputIDs, e.attentionMask}
	if cfg.TokenTypeIDs {
		if e.tokenTypeIDs, err = ort.NewEmptyTensor[int64](shape); err != nil {
			return fmt.Errorf("failed to create token_type_ids tensor: %w", err)
		}
		inputNames = append(inputNames, "token_type_ids")
		inputs = append(inputs, e.tokenTypeIDs)
	}

	outShape := ort.NewShape(1, int64(e.dimensions))
	if e.meanPool {
		outShape = ort.NewShape(1, int64(e.maxTokens), int64(e.dimensions))
	}
	if e.output, err = ort.NewEmptyTensor[float32](outShape); err != nil {
		return fmt.Errorf("failed to create output tensor: %w", err)
	}

	e.session, err = ort.NewAdvancedSession(cfg.ModelPath, inputNames, []string{outputName},
		inputs, []ort.ArbitraryTensor{e.output}, nil)
	if err != nil {
		return fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return nil
}

// Embed returns the unit-length embedding for text, using the cache when available.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, errors.New("onnx embedder is closed")
	}

	ids, mask, types := e.tokenizer.Tokenize(text, e.maxTokens)
	copy(e.inputIDs.GetData(), ids)
	copy(e.attentionMask.GetData(), mask)
	if e.tokenTypeIDs != nil {
		copy(e.tokenTypeIDs.GetData(), types)
	}
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	var embedding []float32
	if e.meanPool {
		embedding = meanPool(e.output.GetData(), mask, e.dimensions)
	} else {
		embedding = make([]float32, e.dimensions)
		copy(embedding, e.output.GetData())
	}
	normalizeInPlace(embedding)
	e.cache.Set(text, embedding)
	return embedding, nil
}

// EmbedBatch calls Embed for each text.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{e.inputIDs, e.attentionMask, e.tokenTypeIDs} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	if e.output != nil {
		_ = e.output.Destroy()
	}
	e.inputIDs, e.attentionMask, e.tokenTypeIDs, e.output = nil, nil, nil, nil
	return err
}
