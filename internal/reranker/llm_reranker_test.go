package reranker

import (
	"context"
	"errors"
	"testing"

	"github.com/knoguchi/catalogsearch/internal/llm"
	"github.com/knoguchi/catalogsearch/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	response string
	err      error
	prompt   string
	opts     llm.GenerateOptions
	calls    int
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	f.calls++
	f.prompt = prompt
	f.opts = opts
	return f.response, f.err
}

var candidates = []search.Candidate{
	{Segment: search.SegmentEvent, OriginalID: "e-1", Preview: "Live jazz night at the rooftop bar"},
	{Segment: search.SegmentProduct, OriginalID: "p-7", Preview: "Floral summer dress in linen..."},
}

func TestRerank_ParsesJudgments(t *testing.T) {
	client := &fakeLLM{response: "```json\n" + `{"results": [
		{"name_space": "product", "original_id": "p-7", "relevance_score": 9, "relevance_reason": " matches dress "},
		{"name_space": "Events", "original_id": "e-1", "relevance_score": 4.6, "relevance_reason": "venue"}
	]}` + "\n```"}
	r := NewLLMReranker(client, WithModel("gpt-4.1"), WithTemperature(0.1))

	got, err := r.Rerank(context.Background(), "summer dress", candidates, 7)

	require.NoError(t, err)
	assert.Equal(t, []search.Judgment{
		{Segment: search.SegmentProduct, OriginalID: "p-7", RelevanceScore: 9, RelevanceReason: "matches dress"},
		{Segment: search.SegmentEvent, OriginalID: "e-1", RelevanceScore: 5, RelevanceReason: "venue"},
	}, got)
	assert.Equal(t, "gpt-4.1", client.opts.Model)
	assert.True(t, client.opts.JSONMode)
	assert.InDelta(t, 0.1, client.opts.Temperature, 1e-6)
}

func TestRerank_Prompt(t *testing.T) {
	client := &fakeLLM{response: `{"results": []}`}

	_, err := NewLLMReranker(client).Rerank(context.Background(), "jazz tonight", candidates, 3)

	require.NoError(t, err)
	assert.Contains(t, client.prompt, "User Query: jazz tonight")
	assert.Contains(t, client.prompt, "Result 1 (ID: e-1, Type: event):\nLive jazz night at the rooftop bar")
	assert.Contains(t, client.prompt, "Result 2 (ID: p-7, Type: product):")
	assert.Contains(t, client.prompt, "TOP 3")
}

func TestRerank_CapsAtTopK(t *testing.T) {
	client := &fakeLLM{response: `{"results": [
		{"name_space": "event", "original_id": "a", "relevance_score": 9},
		{"name_space": "event", "original_id": "b", "relevance_score": 8},
		{"name_space": "event", "original_id": "c", "relevance_score": 7}
	]}`}

	got, err := NewLLMReranker(client).Rerank(context.Background(), "q", candidates, 2)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[1].OriginalID)
}

func TestRerank_Failures(t *testing.T) {
	t.Run("transport", func(t *testing.T) {
		client := &fakeLLM{err: errors.New("503")}
		_, err := NewLLMReranker(client).Rerank(context.Background(), "q", candidates, 5)
		assert.ErrorIs(t, err, search.ErrModel)
	})

	t.Run("malformed", func(t *testing.T) {
		client := &fakeLLM{response: "I think result 2 is best"}
		_, err := NewLLMReranker(client).Rerank(context.Background(), "q", candidates, 5)
		assert.ErrorIs(t, err, search.ErrModel)
	})
}

func TestRerank_NoCandidates(t *testing.T) {
	client := &fakeLLM{}

	got, err := NewLLMReranker(client).Rerank(context.Background(), "q", nil, 5)

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, client.calls)
}

func TestParseRerankResponse_Normalizes(t *testing.T) {
	got, err := parseRerankResponse(`{"results": [
		{"name_space": "product", "original_id": 42, "relevance_score": "12"},
		{"name_space": "product", "original_id": "", "relevance_score": 5},
		{"name_space": "event", "original_id": "x", "relevance_score": -3},
		{"name_space": "event", "original_id": "y", "relevance_score": null}
	]}`)

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "42", got[0].OriginalID)
	assert.Equal(t, MaxRelevance, got[0].RelevanceScore)
	assert.Equal(t, MinRelevance, got[1].RelevanceScore)
	assert.Equal(t, MinRelevance, got[2].RelevanceScore)
}

func TestNormalizeSegment(t *testing.T) {
	for in, want := range map[string]search.Segment{
		"event":     search.SegmentEvent,
		" Product ": search.SegmentProduct,
		"products":  search.SegmentProduct,
		"EVENTS":    search.SegmentEvent,
		"venue":     search.Segment("venue"),
	} {
		assert.Equal(t, want, normalizeSegment(in), in)
	}
}
