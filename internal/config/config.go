// Package config loads configuration from environment variables and .env files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the search service
type Config struct {
	// Server
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Qdrant
	QdrantGRPCURL  string `env:"QDRANT_GRPC_URL" envDefault:"localhost:6334"`
	QdrantAPIKey   string `env:"QDRANT_API_KEY"`
	QdrantUseTLS   bool   `env:"QDRANT_USE_TLS" envDefault:"false"`
	CollectionName string `env:"COLLECTION_NAME" envDefault:"fly-senga-openai"`

	// Embeddings
	EmbeddingProvider  string `env:"EMBEDDING_PROVIDER" envDefault:"openai"`
	EmbeddingModel     string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingDimension int    `env:"EMBEDDING_DIMENSION"` // 0 uses the model's native size

	// OpenAI
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	// LLM
	LLMProvider      string  `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMModelEnhancer string  `env:"LLM_MODEL_ENHANCER" envDefault:"gpt-4.1-mini"`
	LLMModelReranker string  `env:"LLM_MODEL_RERANKER" envDefault:"gpt-4.1"`
	LLMTemperature   float32 `env:"LLM_TEMPERATURE" envDefault:"0.1"`

	// Ollama
	OllamaURL string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`

	// Search
	ScoreThreshold     float32       `env:"SCORE_THRESHOLD" envDefault:"0.0"`
	RetrievalLimit     int           `env:"RETRIEVAL_LIMIT" envDefault:"15"`
	DefaultTopK        int           `env:"DEFAULT_TOP_K" envDefault:"7"`
	SearchTimeout      time.Duration `env:"SEARCH_TIMEOUT" envDefault:"30s"`
	RerankPreviewChars int           `env:"RERANK_PREVIEW_CHARS" envDefault:"300"`
	Timezone           string        `env:"TIMEZONE" envDefault:"UTC"`

	// Auth
	AdminJWTSecret string `env:"ADMIN_JWT_SECRET"`
}

// Load loads configuration from .env file (if present) and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize lowercases enumerated settings so later comparisons are exact.
func (c *Config) normalize() {
	c.EmbeddingProvider = strings.ToLower(strings.TrimSpace(c.EmbeddingProvider))
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

// Validate lowercases enumerated settings, then checks them and the ranged ones.
func (c *Config) Validate() error {
	var errs []error

	c.normalize()

	if !oneOf(c.EmbeddingProvider, "openai", "ollama") {
		errs = append(errs, fmt.Errorf("EMBEDDING_PROVIDER must be openai or ollama, got %q", c.EmbeddingProvider))
	}
	if !oneOf(c.LLMProvider, "openai", "ollama") {
		errs = append(errs, fmt.Errorf("LLM_PROVIDER must be openai or ollama, got %q", c.LLMProvider))
	}
	if !oneOf(c.LogLevel, "debug", "info", "warn", "error") {
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel))
	}
	if c.DefaultTopK < 1 || c.DefaultTopK > 20 {
		errs = append(errs, fmt.Errorf("DEFAULT_TOP_K must be in [1,20], got %d", c.DefaultTopK))
	}
	if c.RetrievalLimit < 1 {
		errs = append(errs, fmt.Errorf("RETRIEVAL_LIMIT must be positive, got %d", c.RetrievalLimit))
	}
	if c.RerankPreviewChars < 1 {
		errs = append(errs, fmt.Errorf("RERANK_PREVIEW_CHARS must be positive, got %d", c.RerankPreviewChars))
	}
	if c.SearchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SEARCH_TIMEOUT must be positive, got %s", c.SearchTimeout))
	}
	if (c.EmbeddingProvider == "openai" || c.LLMProvider == "openai") && c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}

	return errors.Join(errs...)
}

// Location returns the timezone used for relative date filters.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel maps LOG_LEVEL onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// OllamaSelected reports whether any component talks to Ollama.
func (c *Config) OllamaSelected() bool {
	return c.EmbeddingProvider == "ollama" || c.LLMProvider == "ollama"
}

// EmbeddingBaseURL returns the endpoint for the configured embedding provider.
func (c *Config) EmbeddingBaseURL() string {
	if c.EmbeddingProvider == "ollama" {
		return c.OllamaURL
	}
	return c.OpenAIBaseURL
}

// LLMBaseURL returns the endpoint for the configured LLM provider.
func (c *Config) LLMBaseURL() string {
	if c.LLMProvider == "ollama" {
		return c.OllamaURL
	}
	return c.OpenAIBaseURL
}

func oneOf(v string, allowed ...string) bool {
	return slices.Contains(allowed, v)
}
