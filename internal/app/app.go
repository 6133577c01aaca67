// Package app wires configuration into the storage, embedding, index and matcher components.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/resumatch/internal/config"
	"github.com/hyperjump/resumatch/internal/embedding"
	"github.com/hyperjump/resumatch/internal/extract"
	"github.com/hyperjump/resumatch/internal/indexer"
	"github.com/hyperjump/resumatch/internal/insights"
	"github.com/hyperjump/resumatch/internal/ledger"
	"github.com/hyperjump/resumatch/internal/llm"
	"github.com/hyperjump/resumatch/internal/matcher"
	"github.com/hyperjump/resumatch/internal/metrics"
	"github.com/hyperjump/resumatch/internal/models"
	"github.com/hyperjump/resumatch/internal/search"
	"github.com/hyperjump/resumatch/internal/storage"
	"github.com/hyperjump/resumatch/internal/vector"
	"go.uber.org/zap"
)

// Components holds initialized services.
type Components struct {
	Config    *config.Config
	Storage   *storage.SQLiteStorage
	Embedder  embedding.Embedder
	Matcher   *matcher.Manager
	Metrics   *metrics.Metrics
	Extractor *extract.Extractor
	Indexer   *indexer.Indexer
	Search    *search.Engine
	LLM       *llm.Client         // nil when no LLM is configured
	Insights  *insights.Extractor // nil when no LLM is configured
}

// Open builds every component from cfg and loads the persisted index.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (c *Components, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, dir := range []string{filepath.Dir(cfg.Storage.DatabasePath), cfg.Storage.IndexDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	c = &Components{Config: cfg, Metrics: metrics.New()}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	c.Storage, err = storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	c.Embedder, err = NewEmbedder(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	index, err := newVectorIndex(cfg, logger)
	if err != nil {
		return nil, err
	}
	backup, err := vector.OpenBackup(cfg.Storage.BackupPath(), cfg.Embedding.Dimensions)
	if err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to open embedding backup: %w", err)
	}

	c.Matcher, err = matcher.New(c.Embedder, index, ledger.New(c.Storage),
		matcher.WithLogger(logger),
		matcher.WithRecorder(c.Metrics),
		matcher.WithSnapshotPath(cfg.Storage.SnapshotPath()),
		matcher.WithBackup(backup),
		matcher.WithMaxWords(cfg.Embedding.MaxWords),
		matcher.WithEmbedTimeout(cfg.Matcher.EmbedTimeout),
		matcher.WithPersistTimeout(cfg.Matcher.PersistTimeout),
		matcher.WithPersistRetries(cfg.Matcher.PersistRetries),
		matcher.WithPersistBackoff(cfg.Matcher.PersistBackoff),
	)
	if err != nil {
		_ = index.Close()
		_ = backup.Close()
		return nil, fmt.Errorf("failed to initialize matcher: %w", err)
	}
	if err := c.Matcher.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load resume index: %w", err)
	}

	var extractOpts []extract.Option
	if cfg.LLM.Enabled() {
		c.LLM, err = llm.New(llm.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
			MaxRetries:  cfg.Embedding.MaxRetries,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize llm client: %w", err)
		}
		c.Insights = insights.NewExtractor(c.LLM, cfg.LLM.MaxInputChars, logger)
		if cfg.OCR.Enabled {
			extractOpts = append(extractOpts, extract.WithOCR(c.LLM, cfg.OCR.Model))
		}
	} else if cfg.OCR.Enabled {
		logger.Warn("ocr enabled but no llm is configured; image resumes are disabled")
	}
	c.Extractor = extract.NewExtractor(extractOpts...)

	c.Indexer = indexer.NewIndexer(c.Storage, c.Matcher, c.Extractor,
		indexer.WithLogger(logger),
		indexer.WithAllowedExtensions(cfg.Inbox.Extensions),
	)
	c.Search = search.NewEngine(c.Storage, c.Matcher, &cfg.Search, logger)

	logger.Info("components initialized",
		zap.String("embedding", cfg.Embedding.Identity()),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.String("index_type", c.Matcher.IndexType()),
		zap.String("metric", string(c.Matcher.Metric())),
		zap.Bool("llm", c.LLM != nil))
	return c, nil
}

// NewEmbedder creates the embedder named by cfg.Provider. There is no fallback: mixing models
// in one index makes scores meaningless.
func NewEmbedder(cfg config.EmbeddingConfig) (embedding.Embedder, error) {
	switch cfg.Provider {
	case config.ProviderONNX:
		e, err := embedding.NewONNXEmbedder(embedding.ONNXConfig{
			ModelPath:    cfg.ModelPath,
			VocabPath:    cfg.VocabPath,
			Dimensions:   cfg.Dimensions,
			MaxTokens:    cfg.MaxTokens,
			CacheSize:    cfg.CacheSize,
			OutputName:   cfg.OutputName,
			TokenTypeIDs: cfg.TokenTypeIDs,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	case config.ProviderOpenAI:
		e, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			APIKey:            cfg.APIKey,
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			Dimensions:        cfg.Dimensions,
			BatchSize:         cfg.BatchSize,
			CacheSize:         cfg.CacheSize,
			Timeout:           cfg.Timeout,
			MaxRetries:        cfg.MaxRetries,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	case config.ProviderMock:
		return embedding.NewMockEmbedder(cfg.Dimensions), nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
}

// newVectorIndex falls back to the memory index when FAISS is not compiled in. The snapshot of the
// other type is then unreadable and the index is rebuilt from the embedding backup on load.
func newVectorIndex(cfg *config.Config, logger *zap.Logger) (vector.VectorIndex, error) {
	metric, err := vector.ParseMetric(cfg.Vector.Metric)
	if err != nil {
		return nil, err
	}
	indexType, err := vector.ParseIndexType(cfg.Vector.IndexType)
	if err != nil {
		return nil, err
	}
	index, err := vector.NewVectorIndex(indexType, cfg.Embedding.Dimensions, metric)
	if err == nil {
		return index, nil
	}
	if indexType == vector.IndexTypeMemory {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	logger.Warn("failed to create vector index, falling back to memory",
		zap.String("requested_type", string(indexType)),
		zap.Bool("faiss_compiled", vector.FAISSCompiled()),
		zap.Error(err))
	index, err = vector.NewVectorIndex(vector.IndexTypeMemory, cfg.Embedding.Dimensions, metric)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	return index, nil
}

// Status reports record counts, index consistency and disk usage.
func (c *Components) Status(ctx context.Context) (*models.StatusResponse, error) {
	count, err := c.Storage.CountResumes(ctx)
	if err != nil {
		return nil, fmt.Errorf("count resumes: %w", err)
	}
	cons := c.Matcher.Consistency()
	paths := append(storage.DatabaseFiles(c.Config.Storage.DatabasePath),
		c.Config.Storage.SnapshotPath(), c.Config.Storage.BackupPath())
	disk, err := storage.DiskUsageBytes(paths...)
	if err != nil {
		return nil, fmt.Errorf("disk usage: %w", err)
	}
	return &models.StatusResponse{
		Resumes:        count,
		IndexSize:      cons.IndexSize,
		LedgerLen:      cons.LedgerLen,
		BackupLen:      cons.BackupLen,
		PendingLedger:  cons.Pending,
		Consistent:     cons.Consistent,
		Metric:         string(c.Matcher.Metric()),
		IndexType:      c.Matcher.IndexType(),
		EmbeddingModel: c.Config.Embedding.Identity(),
		Dimensions:     c.Config.Embedding.Dimensions,
		DiskUsageBytes: disk,
	}, nil
}

// Close releases every component. The matcher closes the index and the backup.
func (c *Components) Close() error {
	var errs []error
	if c.Matcher != nil {
		errs = append(errs, c.Matcher.Close())
	}
	if c.Embedder != nil {
		errs = append(errs, c.Embedder.Close())
	}
	if c.Storage != nil {
		errs = append(errs, c.Storage.Close())
	}
	return errors.Join(errs...)
}
