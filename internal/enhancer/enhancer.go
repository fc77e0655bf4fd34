// Package enhancer turns a raw user query into a structured search plan using an LLM.
package enhancer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/knoguchi/catalogsearch/internal/llm"
	"github.com/knoguchi/catalogsearch/internal/search"
)

// DefaultModel is the default query enhancement model.
const DefaultModel = "gpt-4.1-mini"

// LLMEnhancer implements search.Enhancer with an LLM in JSON mode.
type LLMEnhancer struct {
	llmClient   llm.LLM
	model       string
	temperature float32
}

// Option is a functional option for configuring LLMEnhancer.
type Option func(*LLMEnhancer)

// WithModel sets the model to use for enhancement.
func WithModel(model string) Option {
	return func(e *LLMEnhancer) {
		if model != "" {
			e.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(e *LLMEnhancer) {
		e.temperature = t
	}
}

// NewLLMEnhancer creates a new LLM-based query enhancer.
func NewLLMEnhancer(llmClient llm.LLM, opts ...Option) *LLMEnhancer {
	e := &LLMEnhancer{
		llmClient:   llmClient,
		model:       DefaultModel,
		temperature: 0.1,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Enhance interprets query. Errors wrap search.ErrModel.
func (e *LLMEnhancer) Enhance(ctx context.Context, query string) (search.QueryEnhancement, error) {
	response, err := e.llmClient.Generate(ctx, fmt.Sprintf(userPrompt, query), llm.GenerateOptions{
		Model:        e.model,
		SystemPrompt: systemPrompt,
		Temperature:  e.temperature,
		JSONMode:     true,
	})
	if err != nil {
		return search.QueryEnhancement{}, fmt.Errorf("query enhancement failed: %w: %w", search.ErrModel, err)
	}

	enh, err := parseEnhancement(response, query)
	if err != nil {
		return search.QueryEnhancement{}, fmt.Errorf("%w: %w", search.ErrModel, err)
	}

	return enh, nil
}

// rawEnhancement is the model's output before normalization. Optional fields are
// pointers or raw JSON since models emit null, strings and lists interchangeably.
type rawEnhancement struct {
	EventQuery   string          `json:"event_enhanced_query"`
	ProductQuery string          `json:"product_enhanced_query"`
	SearchType   string          `json:"search_type"`
	Audience     *string         `json:"audience"`
	TimeFilter   *string         `json:"time_filter"`
	IsWeekend    *bool           `json:"is_weekend"`
	Keywords     json.RawMessage `json:"other_keyword_filters"`
}

// parseEnhancement decodes and normalizes the model output. An unknown search type
// is an error; unknown audience or time filter values are dropped.
func parseEnhancement(response, query string) (search.QueryEnhancement, error) {
	var raw rawEnhancement
	if err := json.Unmarshal([]byte(llm.ExtractJSON(response)), &raw); err != nil {
		return search.QueryEnhancement{}, fmt.Errorf("failed to parse enhancement: %w", err)
	}

	selection, ok := normalizeSelection(raw.SearchType)
	if !ok {
		return search.QueryEnhancement{}, fmt.Errorf("unknown search_type %q", raw.SearchType)
	}

	enh := search.QueryEnhancement{
		EventQuery:   strings.TrimSpace(raw.EventQuery),
		ProductQuery: strings.TrimSpace(raw.ProductQuery),
		Segments:     selection,
		Keywords:     normalizeKeywords(raw.Keywords),
	}
	if enh.EventQuery == "" && enh.ProductQuery == "" {
		enh.EventQuery, enh.ProductQuery = query, query
	}

	if raw.Audience != nil {
		a := search.Audience(strings.ToLower(strings.TrimSpace(*raw.Audience)))
		if _, known := a.PayloadValue(); known {
			enh.Audience = a
		}
	}
	if raw.TimeFilter != nil {
		tf := search.TimeFilter(strings.ToLower(strings.TrimSpace(*raw.TimeFilter)))
		if tf.Valid() {
			enh.TimeFilter = tf
		}
	}
	if raw.IsWeekend != nil {
		enh.IsWeekend = *raw.IsWeekend
	}

	return enh, nil
}

func normalizeSelection(s string) (search.SegmentSelection, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "event", "events":
		return search.SelectEvent, true
	case "product", "products":
		return search.SelectProduct, true
	case "both":
		return search.SelectBoth, true
	default:
		return "", false
	}
}

// stopKeywords never narrow a search: segment names are carried by search_type.
var stopKeywords = map[string]bool{
	"event": true, "events": true, "product": true, "products": true,
}

// normalizeKeywords accepts a list or a comma separated string, trims, drops segment
// names and removes case-insensitive duplicates. The result is never nil.
func normalizeKeywords(raw json.RawMessage) []string {
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		var joined string
		if json.Unmarshal(raw, &joined) == nil {
			items = strings.Split(joined, ",")
		}
	}

	keywords := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		kw := strings.TrimSpace(item)
		key := strings.ToLower(kw)
		if kw == "" || stopKeywords[key] || seen[key] {
			continue
		}
		seen[key] = true
		keywords = append(keywords, kw)
	}

	return keywords
}

// Ensure LLMEnhancer implements search.Enhancer.
var _ search.Enhancer = (*LLMEnhancer)(nil)
