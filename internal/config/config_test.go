package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
embedding:
  provider: mock
  dimensions: 64
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if cfg.Embedding.Dimensions != 64 {
		t.Errorf("dimensions: got %d", cfg.Embedding.Dimensions)
	}
}

func TestLoad_durations(t *testing.T) {
	path := writeConfig(t, `
embedding:
  provider: mock
matcher:
  embed_timeout: 5s
  persist_backoff: 50ms
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Matcher.EmbedTimeout != 5*time.Second {
		t.Errorf("embed_timeout: got %v", cfg.Matcher.EmbedTimeout)
	}
	if cfg.Matcher.PersistBackoff != 50*time.Millisecond {
		t.Errorf("persist_backoff: got %v", cfg.Matcher.PersistBackoff)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/db/resumatch.db"
  index_dir: "./data/index"
embedding:
  provider: mock
inbox:
  directories: ["./dev/inbox"]
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "resumatch.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	wantSnapshot := filepath.Join(dir, "data", "index", SnapshotFile)
	if cfg.Storage.SnapshotPath() != wantSnapshot {
		t.Errorf("snapshot path = %s, want %s", cfg.Storage.SnapshotPath(), wantSnapshot)
	}
	if len(cfg.Inbox.Directories) != 1 {
		t.Fatalf("inbox directories: got %d", len(cfg.Inbox.Directories))
	}
	wantInbox := filepath.Join(dir, "dev", "inbox")
	if cfg.Inbox.Directories[0] != wantInbox {
		t.Errorf("inbox directory = %s, want %s", cfg.Inbox.Directories[0], wantInbox)
	}
}

func TestLoad_envOverrides(t *testing.T) {
	t.Setenv("RESUMATCH_SERVER_PORT", "9191")
	t.Setenv("RESUMATCH_DEBUG", "true")
	t.Setenv("RESUMATCH_LLM_API_KEY", "sk-test")
	path := writeConfig(t, `
server:
  port: 8000
embedding:
  provider: mock
llm:
  model: gpt-4o-mini
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("port: got %d, want 9191", cfg.Server.Port)
	}
	if !cfg.Debug {
		t.Error("debug should be enabled from the environment")
	}
	if cfg.LLM.APIKey != "sk-test" || !cfg.LLM.Enabled() {
		t.Errorf("llm should be enabled with the env key, got %+v", cfg.LLM)
	}
}

func TestLoad_invalidDebugEnv(t *testing.T) {
	t.Setenv("RESUMATCH_DEBUG", "sometimes")
	path := writeConfig(t, "embedding:\n  provider: mock\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid RESUMATCH_DEBUG")
	}
}

func TestLoad_rejectsUnknownValues(t *testing.T) {
	cases := map[string]string{
		"provider":   "embedding:\n  provider: word2vec\n",
		"metric":     "embedding:\n  provider: mock\nvector:\n  metric: manhattan\n",
		"index_type": "embedding:\n  provider: mock\nvector:\n  index_type: hnsw\n",
		"openai":     "embedding:\n  provider: openai\n",
		"k":          "embedding:\n  provider: mock\nsearch:\n  default_k: 50\n  max_k: 10\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Errorf("expected validation error for %s", name)
			}
		})
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("default server: got %+v", cfg.Server)
	}
	if cfg.Embedding.Provider != ProviderONNX || cfg.Embedding.Dimensions != 768 {
		t.Errorf("default embedding: got %+v", cfg.Embedding)
	}
	if cfg.Embedding.MaxWords != 512 {
		t.Errorf("default max_words: got %d", cfg.Embedding.MaxWords)
	}
	if cfg.Vector.Metric != "cosine" || cfg.Vector.IndexType != "memory" {
		t.Errorf("default vector: got %+v", cfg.Vector)
	}
	if cfg.Search.DefaultK != 5 || cfg.Search.MaxK != 100 {
		t.Errorf("default search: got %+v", cfg.Search)
	}
	if cfg.Matcher.PersistRetries != 3 {
		t.Errorf("default persist_retries: got %d", cfg.Matcher.PersistRetries)
	}
	if cfg.LLM.MaxInputChars != 700 || cfg.LLM.MaxTokens != 512 {
		t.Errorf("default llm: got %+v", cfg.LLM)
	}
	if len(cfg.Inbox.Extensions) != 4 || cfg.Inbox.Extensions[0] != ".pdf" {
		t.Errorf("inbox extensions: got %v", cfg.Inbox.Extensions)
	}
}

func TestApplyDefaults_OCRAddsImageExtensions(t *testing.T) {
	cfg := &Config{OCR: OCRConfig{Enabled: true}, LLM: LLMConfig{Model: "gpt-4o-mini"}}
	ApplyDefaults(cfg)
	if len(cfg.Inbox.Extensions) != 7 {
		t.Errorf("inbox extensions with OCR: got %v", cfg.Inbox.Extensions)
	}
	if cfg.OCR.Model != "gpt-4o-mini" {
		t.Errorf("ocr model should default to the llm model, got %q", cfg.OCR.Model)
	}
}

func TestApplyDefaults_InboxRecursiveWhenDirectoriesSet(t *testing.T) {
	cfg := &Config{Inbox: InboxConfig{Directories: []string{"/tmp/inbox"}}}
	ApplyDefaults(cfg)
	if cfg.Inbox.Recursive == nil || !*cfg.Inbox.Recursive {
		t.Error("recursive should default to true when directories are set")
	}
}

func TestInboxConfig_RecursiveOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &InboxConfig{}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &InboxConfig{Recursive: &f}
		if got := w.RecursiveOrDefault(); got {
			t.Errorf("RecursiveOrDefault() = %v, want false", got)
		}
	})
}

func TestEmbeddingConfig_Identity(t *testing.T) {
	e := EmbeddingConfig{Provider: "onnx", ModelPath: "/models/all-mpnet-base-v2.onnx"}
	if got := e.Identity(); got != "onnx/all-mpnet-base-v2" {
		t.Errorf("Identity() = %q", got)
	}
	e = EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small"}
	if got := e.Identity(); got != "openai/text-embedding-3-small" {
		t.Errorf("Identity() = %q", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := LoadDotEnv(filepath.Join(dir, ".env")); err != nil {
		t.Fatalf("missing .env should not be an error: %v", err)
	}

	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("RESUMATCH_TEST_DOTENV=loaded\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("RESUMATCH_TEST_DOTENV") })
	if err := LoadDotEnv(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("RESUMATCH_TEST_DOTENV"); got != "loaded" {
		t.Errorf("RESUMATCH_TEST_DOTENV = %q, want loaded", got)
	}
}
