package config

import "time"

// Embedding providers.
const (
	ProviderONNX   = "onnx"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/resumatch/data/db/resumatch.db"
	}
	if cfg.Storage.IndexDir == "" {
		cfg.Storage.IndexDir = "/usr/local/var/resumatch/data/index"
	}
	if cfg.Storage.MediaRoot == "" {
		cfg.Storage.MediaRoot = "/usr/local/var/resumatch/media"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderONNX
	}
	if cfg.Embedding.Provider == ProviderONNX && cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/resumatch/data/models/all-mpnet-base-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 384
	}
	if cfg.Embedding.MaxWords == 0 {
		cfg.Embedding.MaxWords = 512
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Embedding.MaxRetries == 0 {
		cfg.Embedding.MaxRetries = 3
	}
	if cfg.Vector.IndexType == "" {
		cfg.Vector.IndexType = "memory"
	}
	if cfg.Vector.Metric == "" {
		cfg.Vector.Metric = "cosine"
	}
	if cfg.Matcher.EmbedTimeout == 0 {
		cfg.Matcher.EmbedTimeout = 60 * time.Second
	}
	if cfg.Matcher.PersistTimeout == 0 {
		cfg.Matcher.PersistTimeout = 30 * time.Second
	}
	if cfg.Matcher.PersistRetries == 0 {
		cfg.Matcher.PersistRetries = 3
	}
	if cfg.Matcher.PersistBackoff == 0 {
		cfg.Matcher.PersistBackoff = 200 * time.Millisecond
	}
	if cfg.Search.DefaultK == 0 {
		cfg.Search.DefaultK = 5
	}
	if cfg.Search.MaxK == 0 {
		cfg.Search.MaxK = 100
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 512
	}
	if cfg.LLM.MaxInputChars == 0 {
		cfg.LLM.MaxInputChars = 700
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}
	if cfg.OCR.Model == "" {
		cfg.OCR.Model = cfg.LLM.Model
	}
	if cfg.Inbox.Extensions == nil {
		cfg.Inbox.Extensions = []string{".pdf", ".docx", ".txt", ".md"}
		if cfg.OCR.Enabled {
			cfg.Inbox.Extensions = append(cfg.Inbox.Extensions, ".png", ".jpg", ".jpeg")
		}
	}
	if len(cfg.Inbox.Directories) > 0 && cfg.Inbox.Recursive == nil {
		t := true
		cfg.Inbox.Recursive = &t
	}
}
