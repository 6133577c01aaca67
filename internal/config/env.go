package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "RESUMATCH"

// EnvOverrides holds RESUMATCH_* environment variables. Empty values leave the file config untouched.
// Secrets (API keys) are only read from the environment, never from the YAML file.
type EnvOverrides struct {
	// Env: RESUMATCH_DEBUG
	Debug string `envconfig:"DEBUG"`
	// Env: RESUMATCH_SERVER_HOST
	ServerHost string `envconfig:"SERVER_HOST"`
	// Env: RESUMATCH_SERVER_PORT
	ServerPort int `envconfig:"SERVER_PORT"`
	// Env: RESUMATCH_DATABASE_PATH
	DatabasePath string `envconfig:"DATABASE_PATH"`
	// Env: RESUMATCH_INDEX_DIR
	IndexDir string `envconfig:"INDEX_DIR"`
	// Env: RESUMATCH_EMBEDDING_API_KEY
	EmbeddingAPIKey string `envconfig:"EMBEDDING_API_KEY"`
	// Env: RESUMATCH_EMBEDDING_BASE_URL
	EmbeddingBaseURL string `envconfig:"EMBEDDING_BASE_URL"`
	// Env: RESUMATCH_LLM_API_KEY
	LLMAPIKey string `envconfig:"LLM_API_KEY"`
	// Env: RESUMATCH_LLM_BASE_URL
	LLMBaseURL string `envconfig:"LLM_BASE_URL"`
	// Env: RESUMATCH_LLM_MODEL
	LLMModel string `envconfig:"LLM_MODEL"`
}

// LoadDotEnv loads variables from a .env file without overriding ones already set.
// If path is empty, ".env" in the current directory is used. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv reads RESUMATCH_* variables into cfg.
func ApplyEnv(cfg *Config) error {
	var env EnvOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	if env.Debug != "" {
		debug, err := strconv.ParseBool(env.Debug)
		if err != nil {
			return fmt.Errorf("invalid %s_DEBUG: %w", EnvPrefix, err)
		}
		cfg.Debug = debug
	}
	if env.ServerHost != "" {
		cfg.Server.Host = env.ServerHost
	}
	if env.ServerPort != 0 {
		cfg.Server.Port = env.ServerPort
	}
	if env.DatabasePath != "" {
		cfg.Storage.DatabasePath = env.DatabasePath
	}
	if env.IndexDir != "" {
		cfg.Storage.IndexDir = env.IndexDir
	}
	if env.EmbeddingAPIKey != "" {
		cfg.Embedding.APIKey = env.EmbeddingAPIKey
	}
	if env.EmbeddingBaseURL != "" {
		cfg.Embedding.BaseURL = env.EmbeddingBaseURL
	}
	if env.LLMAPIKey != "" {
		cfg.LLM.APIKey = env.LLMAPIKey
	}
	if env.LLMBaseURL != "" {
		cfg.LLM.BaseURL = env.LLMBaseURL
	}
	if env.LLMModel != "" {
		cfg.LLM.Model = env.LLMModel
	}
	return nil
}
