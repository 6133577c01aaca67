package embedding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// DefaultBatchSize is the number of texts sent per embeddings request.
const DefaultBatchSize = 16

var errEmbeddingCountMismatch = errors.New("embedding response count mismatch")

// OpenAIConfig configures an embedder backed by any OpenAI-compatible embeddings endpoint.
type OpenAIConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Dimensions        int
	BatchSize         int
	CacheSize         int
	Timeout           time.Duration
	MaxRetries        int
	InitialDelay      time.Duration
	BackoffFactor     float64
	RequestsPerSecond float64 // 0 disables client-side rate limiting
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings API.
type OpenAIEmbedder struct {
	client        *openai.Client
	model         string
	dimensions    int
	batchSize     int
	cache         *EmbeddingCache
	limiter       *rate.Limiter
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
}

// NewOpenAIEmbedder creates an embedder from cfg.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		config.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	e := &OpenAIEmbedder{
		client:        openai.NewClientWithConfig(config),
		model:         cfg.Model,
		dimensions:    cfg.Dimensions,
		batchSize:     cfg.BatchSize,
		cache:         NewEmbeddingCache(cfg.CacheSize),
		maxRetries:    cfg.MaxRetries,
		initialDelay:  cfg.InitialDelay,
		backoffFactor: cfg.BackoffFactor,
	}
	if e.batchSize <= 0 {
		e.batchSize = DefaultBatchSize
	}
	if e.maxRetries < 0 {
		e.maxRetries = 0
	}
	if e.initialDelay <= 0 {
		e.initialDelay = time.Second
	}
	if e.backoffFactor <= 0 {
		e.backoffFactor = 2.0
	}
	if cfg.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return e, nil
}

// Embed returns the embedding for text, using the cache when available.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in batches of BatchSize, skipping cached entries.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []int
	for i, text := range texts {
		if cached, ok := e.cache.Get(text); ok {
			out[i] = cached
			continue
		}
		missing = append(missing, i)
	}

	for start := 0; start < len(missing); start += e.batchSize {
		end := start + e.batchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := make([]string, 0, end-start)
		for _, idx := range missing[start:end] {
			batch = append(batch, texts[idx])
		}
		vectors, err := e.request(ctx, batch)
		if err != nil {
			return nil, err
		}
		for j, idx := range missing[start:end] {
			out[idx] = vectors[j]
			e.cache.Set(texts[idx], vectors[j])
		}
	}
	return out, nil
}

func (e *OpenAIEmbedder) request(ctx context.Context, batch []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: batch,
	}

	var resp openai.EmbeddingResponse
	err := e.withRetry(ctx, func() error {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		var err error
		resp, err = e.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Data) != len(batch) {
			return fmt.Errorf("%w: got %d vectors for %d texts", errEmbeddingCountMismatch, len(resp.Data), len(batch))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	vectors := make([][]float32, len(batch))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(batch) {
			return nil, fmt.Errorf("embedding response index %d out of range", d.Index)
		}
		if len(d.Embedding) != e.dimensions {
			return nil, fmt.Errorf("%w: model %s returned %d, expected %d", ErrDimensions, e.model, len(d.Embedding), e.dimensions)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("embedding response missing index %d", i)
		}
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) withRetry(ctx context.Context, fn func() error) error {
	delay := e.initialDelay
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
		if attempt < e.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * e.backoffFactor)
			}
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	if errors.Is(err, errEmbeddingCountMismatch) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}
	var reqErr *openai.RequestError
	return errors.As(err, &reqErr)
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Model returns the configured model name.
func (e *OpenAIEmbedder) Model() string {
	return e.model
}

// Close is a no-op for the HTTP client.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
