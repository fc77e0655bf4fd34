package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "localhost:6334", cfg.QdrantGRPCURL)
	assert.Equal(t, "fly-senga-openai", cfg.CollectionName)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Zero(t, cfg.EmbeddingDimension)
	assert.Equal(t, "gpt-4.1-mini", cfg.LLMModelEnhancer)
	assert.Equal(t, "gpt-4.1", cfg.LLMModelReranker)
	assert.InDelta(t, 0.1, cfg.LLMTemperature, 1e-6)
	assert.Equal(t, 15, cfg.RetrievalLimit)
	assert.Equal(t, 7, cfg.DefaultTopK)
	assert.Equal(t, 30*time.Second, cfg.SearchTimeout)
	assert.Equal(t, 300, cfg.RerankPreviewChars)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.False(t, cfg.OllamaSelected())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("EMBEDDING_MODEL", "nomic-embed-text")
	t.Setenv("SEARCH_TIMEOUT", "5s")
	t.Setenv("TIMEZONE", "Europe/London")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SCORE_THRESHOLD", "0.25")

	cfg, err := Load()

	require.NoError(t, err)
	assert.True(t, cfg.OllamaSelected())
	assert.Equal(t, 5*time.Second, cfg.SearchTimeout)
	assert.Equal(t, "Europe/London", cfg.Location().String())
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.InDelta(t, 0.25, cfg.ScoreThreshold, 1e-6)
}

func TestLoad_ProviderCaseInsensitive(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "Ollama")
	t.Setenv("LLM_PROVIDER", " OpenAI ")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", "https://proxy.example.com/v1")
	t.Setenv("OLLAMA_URL", "http://ollama:11434")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.EmbeddingProvider)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.True(t, cfg.OllamaSelected())
	assert.Equal(t, "http://ollama:11434", cfg.EmbeddingBaseURL())
	assert.Equal(t, "https://proxy.example.com/v1", cfg.LLMBaseURL())
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			LogLevel:           "info",
			EmbeddingProvider:  "openai",
			LLMProvider:        "openai",
			OpenAIAPIKey:       "sk",
			DefaultTopK:        7,
			RetrievalLimit:     15,
			RerankPreviewChars: 300,
			SearchTimeout:      time.Second,
			Timezone:           "UTC",
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad embedding provider", func(c *Config) { c.EmbeddingProvider = "cohere" }, "EMBEDDING_PROVIDER"},
		{"bad llm provider", func(c *Config) { c.LLMProvider = "bedrock" }, "LLM_PROVIDER"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "LOG_LEVEL"},
		{"top_k too large", func(c *Config) { c.DefaultTopK = 21 }, "DEFAULT_TOP_K"},
		{"zero retrieval limit", func(c *Config) { c.RetrievalLimit = 0 }, "RETRIEVAL_LIMIT"},
		{"zero preview", func(c *Config) { c.RerankPreviewChars = 0 }, "RERANK_PREVIEW_CHARS"},
		{"zero timeout", func(c *Config) { c.SearchTimeout = 0 }, "SEARCH_TIMEOUT"},
		{"missing api key", func(c *Config) { c.OpenAIAPIKey = "" }, "OPENAI_API_KEY"},
		{"missing api key mixed case provider", func(c *Config) {
			c.OpenAIAPIKey = ""
			c.LLMProvider = "OpenAI"
			c.EmbeddingProvider = "Ollama"
		}, "OPENAI_API_KEY"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "TIMEZONE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}
