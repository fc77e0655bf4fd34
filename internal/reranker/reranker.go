// Package reranker orders retrieved events and products by relevance using an LLM.
//
// The model sees the user query with a short preview of each candidate and returns
// its top picks as structured judgments, each tagged with the candidate's segment
// and original id so it can be joined back to the retrieved payload.
//
// # Trade-offs
//
//   - Latency: Adds one LLM round trip per search
//   - Quality: Much better ordering than raw vector scores when candidates mix segments
//   - Cost: Preview length bounds prompt tokens; see RERANK_PREVIEW_CHARS
package reranker

import (
	"strings"

	"github.com/knoguchi/catalogsearch/internal/search"
)

// Relevance scores are on a 1-10 scale.
const (
	MinRelevance = 1
	MaxRelevance = 10
)

// rankedResult is one entry of the model's structured output.
type rankedResult struct {
	Segment         string `json:"name_space"`
	OriginalID      any    `json:"original_id"`
	RelevanceScore  any    `json:"relevance_score"`
	RelevanceReason string `json:"relevance_reason"`
}

type rerankResponse struct {
	Results []rankedResult `json:"results"`
}

// normalizeSegment maps model spellings like "Events" onto a segment.
func normalizeSegment(s string) search.Segment {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "s")
	return search.Segment(s)
}
