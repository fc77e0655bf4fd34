package reranker

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/knoguchi/catalogsearch/internal/llm"
	"github.com/knoguchi/catalogsearch/internal/search"
)

// DefaultModel is the default reranking model.
const DefaultModel = "gpt-4.1"

// LLMReranker uses an LLM to pick and score the most relevant candidates.
type LLMReranker struct {
	llmClient   llm.LLM
	model       string
	temperature float32
}

// LLMRerankerOption is a functional option for configuring LLMReranker.
type LLMRerankerOption func(*LLMReranker)

// WithModel sets the model to use for reranking.
func WithModel(model string) LLMRerankerOption {
	return func(r *LLMReranker) {
		if model != "" {
			r.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) LLMRerankerOption {
	return func(r *LLMReranker) {
		r.temperature = t
	}
}

// NewLLMReranker creates a new LLM-based reranker.
func NewLLMReranker(llmClient llm.LLM, opts ...LLMRerankerOption) *LLMReranker {
	r := &LLMReranker{
		llmClient:   llmClient,
		model:       DefaultModel,
		temperature: 0.1,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Rerank asks the LLM for the topK most relevant candidates, best first.
func (r *LLMReranker) Rerank(ctx context.Context, query string, candidates []search.Candidate, topK int) ([]search.Judgment, error) {
	if len(candidates) == 0 {
		return []search.Judgment{}, nil
	}

	response, err := r.llmClient.Generate(ctx, buildRerankPrompt(query, candidates, topK), llm.GenerateOptions{
		Model:        r.model,
		SystemPrompt: systemPrompt,
		Temperature:  r.temperature,
		JSONMode:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM reranking failed: %w: %w", search.ErrModel, err)
	}

	judgments, err := parseRerankResponse(response)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", search.ErrModel, err)
	}

	if topK > 0 && len(judgments) > topK {
		judgments = judgments[:topK]
	}

	return judgments, nil
}

const systemPrompt = "You are a search result ranking expert for an events and fashion catalog. " +
	"You always answer with a single JSON object."

// buildRerankPrompt constructs the prompt listing every candidate preview.
func buildRerankPrompt(query string, candidates []search.Candidate, topK int) string {
	var sb strings.Builder

	sb.WriteString("Rank the search results below by relevance to the user query.\n\n")
	sb.WriteString("User Query: ")
	sb.WriteString(query)
	sb.WriteString("\n\nSearch Results:\n")

	for i, c := range candidates {
		fmt.Fprintf(&sb, "Result %d (ID: %s, Type: %s):\n%s\n---\n", i+1, c.OriginalID, c.Segment, c.Preview)
	}

	fmt.Fprintf(&sb, `
Instructions:
1. Judge each result against the user's intent, using semantic similarity and exact matches
2. Select the TOP %d most relevant results, most relevant first
3. Give each a relevance_score from 1 to 10 (10 being most relevant)
4. Give a brief relevance_reason
5. Copy name_space and original_id exactly from the result header (Type and ID)

Output ONLY valid JSON in this exact format:
{"results": [{"name_space": "event", "original_id": "123", "relevance_score": 9, "relevance_reason": "..."}]}
`, topK)

	return sb.String()
}

// parseRerankResponse extracts judgments from the LLM response, keeping model order.
func parseRerankResponse(response string) ([]search.Judgment, error) {
	var parsed rerankResponse
	if err := json.Unmarshal([]byte(llm.ExtractJSON(response)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse rerank response: %w", err)
	}

	judgments := make([]search.Judgment, 0, len(parsed.Results))
	for _, res := range parsed.Results {
		id := stringify(res.OriginalID)
		if id == "" {
			continue
		}
		judgments = append(judgments, search.Judgment{
			Segment:         normalizeSegment(res.Segment),
			OriginalID:      id,
			RelevanceScore:  clampScore(res.RelevanceScore),
			RelevanceReason: strings.TrimSpace(res.RelevanceReason),
		})
	}

	return judgments, nil
}

// stringify accepts ids the model emitted as strings or numbers.
func stringify(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

// clampScore rounds the model's score onto the 1-10 scale.
func clampScore(v any) int {
	var f float64
	switch s := v.(type) {
	case float64:
		f = s
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return MinRelevance
		}
		f = parsed
	default:
		return MinRelevance
	}

	score := int(math.Round(f))
	return max(MinRelevance, min(MaxRelevance, score))
}

// Ensure LLMReranker implements search.Reranker.
var _ search.Reranker = (*LLMReranker)(nil)
