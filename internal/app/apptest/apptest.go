// Package apptest opens fully wired components on temporary storage for tests.
package apptest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/resumatch/internal/app"
	"github.com/hyperjump/resumatch/internal/config"
)

// Dimensions is the mock embedding dimension used by Config.
const Dimensions = 64

// Config returns a config rooted at dir with the mock embedder and the memory index.
func Config(dir string) *config.Config {
	cfg := &config.Config{
		Storage: config.StorageConfig{
			DatabasePath: filepath.Join(dir, "db", "resumatch.db"),
			IndexDir:     filepath.Join(dir, "index"),
			MediaRoot:    filepath.Join(dir, "media"),
		},
		Embedding: config.EmbeddingConfig{Provider: config.ProviderMock, Dimensions: Dimensions},
		Matcher:   config.MatcherConfig{PersistBackoff: time.Millisecond},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

// Open opens components for cfg and closes them at test cleanup. A nil cfg uses Config(t.TempDir()).
func Open(t *testing.T, cfg *config.Config) *app.Components {
	t.Helper()
	if cfg == nil {
		cfg = Config(t.TempDir())
	}
	c, err := app.Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open components: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}
