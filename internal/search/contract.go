package search

import (
	"context"
	"errors"
)

var (
	// ErrEmbedding is returned by embedders on transport or quota failure
	ErrEmbedding = errors.New("embedding failed")
	// ErrStoreQuery is returned by vector stores on a rejected filter or transport failure
	ErrStoreQuery = errors.New("vector store query failed")
	// ErrModel is returned by the language model adapters on call failure or malformed output
	ErrModel = errors.New("language model failed")
)

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore runs filtered similarity queries.
type VectorStore interface {
	Query(ctx context.Context, vector []float32, filter Filter, limit int) (QueryResult, error)
}

// Enhancer interprets a raw user query.
type Enhancer interface {
	Enhance(ctx context.Context, query string) (QueryEnhancement, error)
}

// Reranker orders candidates by relevance and keeps the best topK.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate, topK int) ([]Judgment, error)
}

// RankingModel is a language model serving both enhancement and reranking.
type RankingModel interface {
	Enhancer
	Reranker
}
