// Package config provides configuration loading and structs for the resumatch server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// File names inside storage.index_dir.
const (
	SnapshotFile = "resumes.index"
	BackupFile   = "resumes.embeddings"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Matcher   MatcherConfig   `yaml:"matcher"`
	Search    SearchConfig    `yaml:"search"`
	LLM       LLMConfig       `yaml:"llm"`
	OCR       OCRConfig       `yaml:"ocr"`
	Inbox     InboxConfig     `yaml:"inbox"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database, index files and uploaded resumes.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	IndexDir     string `yaml:"index_dir"`
	MediaRoot    string `yaml:"media_root"` // base for process-path requests
}

// SnapshotPath is the vector index snapshot file.
func (s StorageConfig) SnapshotPath() string {
	return filepath.Join(s.IndexDir, SnapshotFile)
}

// BackupPath is the append-only embedding backup file.
func (s StorageConfig) BackupPath() string {
	return filepath.Join(s.IndexDir, BackupFile)
}

// EmbeddingConfig selects and configures the embedding model.
// Every insert and query against one index must use the same provider and model.
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider"` // onnx, openai or mock
	Model             string        `yaml:"model"`
	ModelPath         string        `yaml:"model_path"`
	VocabPath         string        `yaml:"vocab_path"`
	OutputName        string        `yaml:"output_name"`
	TokenTypeIDs      bool          `yaml:"token_type_ids"`
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"-"`
	Dimensions        int           `yaml:"dimensions"`
	MaxTokens         int           `yaml:"max_tokens"`
	MaxWords          int           `yaml:"max_words"`
	CacheSize         int           `yaml:"cache_size"`
	BatchSize         int           `yaml:"batch_size"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// Identity names the model for status output, e.g. "openai/text-embedding-3-small".
func (e EmbeddingConfig) Identity() string {
	model := e.Model
	if model == "" && e.ModelPath != "" {
		model = strings.TrimSuffix(filepath.Base(e.ModelPath), filepath.Ext(e.ModelPath))
	}
	if model == "" {
		return e.Provider
	}
	return e.Provider + "/" + model
}

// VectorConfig selects the index implementation and metric.
type VectorConfig struct {
	IndexType string `yaml:"index_type"` // memory or faiss
	Metric    string `yaml:"metric"`     // cosine or l2
}

// MatcherConfig bounds embedding and persistence inside the index manager.
type MatcherConfig struct {
	EmbedTimeout   time.Duration `yaml:"embed_timeout"`
	PersistTimeout time.Duration `yaml:"persist_timeout"`
	PersistRetries int           `yaml:"persist_retries"`
	PersistBackoff time.Duration `yaml:"persist_backoff"`
}

// SearchConfig holds match defaults.
type SearchConfig struct {
	DefaultK int `yaml:"default_k"`
	MaxK     int `yaml:"max_k"`
}

// LLMConfig configures the chat model used for resume insights.
type LLMConfig struct {
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"-"`
	Model         string        `yaml:"model"`
	MaxTokens     int           `yaml:"max_tokens"`
	Temperature   float32       `yaml:"temperature"`
	MaxInputChars int           `yaml:"max_input_chars"`
	Timeout       time.Duration `yaml:"timeout"`
}

// Enabled reports whether an LLM endpoint is configured.
func (l LLMConfig) Enabled() bool {
	return l.Model != "" && (l.APIKey != "" || l.BaseURL != "")
}

// OCRConfig configures image resume extraction through a vision model on the LLM endpoint.
type OCRConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
}

// InboxConfig lists directories watched for new resume files.
type InboxConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *InboxConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, applies RESUMATCH_* environment overrides,
// expands paths, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.IndexDir = expandPath(cfg.Storage.IndexDir, configDir)
	cfg.Storage.MediaRoot = expandPath(cfg.Storage.MediaRoot, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Inbox.Directories {
		cfg.Inbox.Directories[i] = expandPath(cfg.Inbox.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown providers, index types and metrics.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case ProviderONNX, ProviderOpenAI, ProviderMock:
	default:
		return fmt.Errorf("unknown embedding provider %q (supported: onnx, openai, mock)", c.Embedding.Provider)
	}
	if c.Embedding.Provider == ProviderOpenAI && c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required for the openai provider")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive")
	}
	switch c.Vector.IndexType {
	case "memory", "faiss":
	default:
		return fmt.Errorf("unknown vector.index_type %q (supported: memory, faiss)", c.Vector.IndexType)
	}
	switch c.Vector.Metric {
	case "cosine", "l2":
	default:
		return fmt.Errorf("unknown vector.metric %q (supported: cosine, l2)", c.Vector.Metric)
	}
	if c.Search.DefaultK > c.Search.MaxK {
		return fmt.Errorf("search.default_k (%d) exceeds search.max_k (%d)", c.Search.DefaultK, c.Search.MaxK)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
