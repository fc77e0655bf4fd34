package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/knoguchi/catalogsearch/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2, 0.3}},
			},
			"usage": map[string]int{"prompt_tokens": 3, "total_tokens": 3},
		})
	}))
	defer server.Close()

	emb := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, Dimension: 3})

	vec, err := emb.Embed(context.Background(), "jazz tonight")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "text-embedding-3-small", gotBody["model"])
	assert.Equal(t, []any{"jazz tonight"}, gotBody["input"])
	assert.EqualValues(t, 3, gotBody["dimensions"])
}

func TestOpenAIEmbedder_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"api error", http.StatusTooManyRequests, `{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`},
		{"detail body", http.StatusBadGateway, `{"detail":"upstream down"}`},
		{"empty data", http.StatusOK, `{"object":"list","data":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			emb := NewOpenAIEmbedder(OpenAIConfig{APIKey: "k", BaseURL: server.URL})

			_, err := emb.Embed(context.Background(), "q")

			require.Error(t, err)
			assert.ErrorIs(t, err, search.ErrEmbedding)
		})
	}
}

func TestOllamaEmbedder_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		assert.Equal(t, "linen shirt", req.Prompt)

		_ = json.NewEncoder(w).Encode(ollamaResponse{Embedding: []float64{0.5, -0.25}})
	}))
	defer server.Close()

	emb := NewOllamaEmbedder(OllamaConfig{BaseURL: server.URL})

	vec, err := emb.Embed(context.Background(), "linen shirt")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.25}, vec)
	assert.Equal(t, 768, emb.Dimension())
}

func TestOllamaEmbedder_Errors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer server.Close()

		_, err := NewOllamaEmbedder(OllamaConfig{BaseURL: server.URL}).Embed(context.Background(), "q")
		assert.ErrorIs(t, err, search.ErrEmbedding)
	})

	t.Run("empty", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"embedding":[]}`))
		}))
		defer server.Close()

		_, err := NewOllamaEmbedder(OllamaConfig{BaseURL: server.URL}).Embed(context.Background(), "q")
		assert.ErrorIs(t, err, search.ErrEmbedding)
	})
}

func TestNew(t *testing.T) {
	emb, err := New(Config{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultOpenAIModel, emb.ModelName())
	assert.Equal(t, 1536, emb.Dimension())

	emb, err = New(Config{Provider: "ollama", Model: "all-minilm"})
	require.NoError(t, err)
	assert.Equal(t, 384, emb.Dimension())

	_, err = New(Config{Provider: "cohere"})
	assert.Error(t, err)
}
