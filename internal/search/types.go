// Package search implements the retrieval orchestration pipeline: query enhancement,
// per-segment filter construction, adaptive retrieval, multi-segment merge and
// reconciliation of reranked judgments back onto retrieved payloads.
package search

import "strings"

// Segment is one of the indexed item kinds
type Segment string

const (
	SegmentEvent   Segment = "event"
	SegmentProduct Segment = "product"
)

// Valid reports whether s is a known segment.
func (s Segment) Valid() bool {
	return s == SegmentEvent || s == SegmentProduct
}

// SegmentSelection is the set of segments a query targets
type SegmentSelection string

const (
	SelectEvent   SegmentSelection = "event"
	SelectProduct SegmentSelection = "product"
	SelectBoth    SegmentSelection = "both"
)

// Segments expands the selection into the concrete segments to search, in merge order.
// Unknown selections expand to nothing.
func (s SegmentSelection) Segments() []Segment {
	switch s {
	case SelectBoth:
		return []Segment{SegmentEvent, SegmentProduct}
	case SelectEvent:
		return []Segment{SegmentEvent}
	case SelectProduct:
		return []Segment{SegmentProduct}
	default:
		return nil
	}
}

// Audience is the target audience extracted from a query
type Audience string

const (
	AudienceMale   Audience = "male"
	AudienceFemale Audience = "female"
	AudienceUnisex Audience = "unisex"
)

// PayloadValue returns the value stored in the index for this audience and whether
// the audience is known.
func (a Audience) PayloadValue() (string, bool) {
	switch a {
	case AudienceMale:
		return "Men", true
	case AudienceFemale:
		return "Women", true
	case AudienceUnisex:
		return "Unisex", true
	default:
		return "", false
	}
}

// TimeFilter is a relative time window for events
type TimeFilter string

const (
	TimePast      TimeFilter = "past"
	TimeFuture    TimeFilter = "future"
	TimeToday     TimeFilter = "today"
	TimeThisWeek  TimeFilter = "this_week"
	TimeThisMonth TimeFilter = "this_month"
	TimeNextWeek  TimeFilter = "next_week"
	TimeNextMonth TimeFilter = "next_month"
)

// Valid reports whether t is a known time filter.
func (t TimeFilter) Valid() bool {
	switch t {
	case TimePast, TimeFuture, TimeToday, TimeThisWeek, TimeThisMonth, TimeNextWeek, TimeNextMonth:
		return true
	}
	return false
}

// QueryEnhancement is the structured interpretation of a user query.
type QueryEnhancement struct {
	EventQuery   string           `json:"event_enhanced_query"`
	ProductQuery string           `json:"product_enhanced_query"`
	Segments     SegmentSelection `json:"search_type"`
	Audience     Audience         `json:"audience,omitempty"`
	TimeFilter   TimeFilter       `json:"time_filter,omitempty"`
	IsWeekend    bool             `json:"is_weekend"`
	Keywords     []string         `json:"other_keyword_filters"`
}

// QueryFor returns the enhanced query text for a segment. An empty segment-specific
// query falls back to the other segment's text.
func (e QueryEnhancement) QueryFor(segment Segment) string {
	var primary, secondary string
	if segment == SegmentProduct {
		primary, secondary = e.ProductQuery, e.EventQuery
	} else {
		primary, secondary = e.EventQuery, e.ProductQuery
	}
	if strings.TrimSpace(primary) != "" {
		return primary
	}
	return secondary
}

// DefaultEnhancement is used when the enhancement model is unavailable.
func DefaultEnhancement(query string) QueryEnhancement {
	return QueryEnhancement{
		EventQuery:   query,
		ProductQuery: query,
		Segments:     SelectBoth,
		Keywords:     []string{},
	}
}

// Record is a single item returned by the vector store
type Record struct {
	Score      float32
	Segment    Segment
	OriginalID string
	Content    string
	Payload    map[string]any
}

// QueryResult is the envelope returned by VectorStore.Query
type QueryResult struct {
	Records []Record
}

// Candidate is a record as presented to the reranking model
type Candidate struct {
	Segment    Segment
	OriginalID string
	Preview    string
}

// Judgment is a reranking model's verdict on one candidate.
// (Segment, OriginalID) joins it back to a Record.
type Judgment struct {
	Segment         Segment `json:"name_space"`
	OriginalID      string  `json:"original_id"`
	RelevanceScore  int     `json:"relevance_score"`
	RelevanceReason string  `json:"relevance_reason"`
}

// Result is a reranked judgment joined with its record's payload
type Result struct {
	OriginalID      string         `json:"original_id"`
	Segment         Segment        `json:"name_space"`
	RelevanceScore  int            `json:"relevance_score"`
	RelevanceReason string         `json:"relevance_reason"`
	Payload         map[string]any `json:"payload"`
}

// Response is the outcome of IntelligentSearch.
// FinalCount <= TotalRetrieved always holds; a degraded response has zero of both.
type Response struct {
	Results        []Result         `json:"results"`
	Enhancement    QueryEnhancement `json:"enhancement"`
	TotalRetrieved int              `json:"total_retrieved"`
	FinalCount     int              `json:"final_count"`
	DroppedCount   int              `json:"dropped_count"`
}
