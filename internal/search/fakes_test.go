package search

import (
	"context"
	"fmt"
	"sync"
)

type storeCall struct {
	filter Filter
	limit  int
}

// fakeStore records every query and answers through respond.
type fakeStore struct {
	mu      sync.Mutex
	calls   []storeCall
	respond func(n int, f Filter, limit int) (QueryResult, error)
}

func (s *fakeStore) Query(_ context.Context, _ []float32, f Filter, limit int) (QueryResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, storeCall{filter: f, limit: limit})
	n := len(s.calls)
	s.mu.Unlock()
	if s.respond == nil {
		return QueryResult{}, nil
	}
	return s.respond(n, f, limit)
}

func (s *fakeStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *fakeStore) minShoulds() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.filter.MinShould
	}
	return out
}

// segmentOf reports the segment pinned by a filter, if any.
func segmentOf(f Filter) Segment {
	for _, c := range f.Must {
		if c.Kind == KindMatch && c.Key == FieldSegment {
			return Segment(c.Value)
		}
	}
	return ""
}

type fakeEmbedder struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.texts = append(e.texts, text)
	if e.err != nil {
		return nil, e.err
	}
	return []float32{float32(len(text)), 1}, nil
}

type fakeModel struct {
	enhancement QueryEnhancement
	enhanceErr  error
	rerank      func(query string, candidates []Candidate, topK int) ([]Judgment, error)

	rerankCalls int
	lastTopK    int
	lastCands   []Candidate
}

func (m *fakeModel) Enhance(_ context.Context, _ string) (QueryEnhancement, error) {
	if m.enhanceErr != nil {
		return QueryEnhancement{}, m.enhanceErr
	}
	return m.enhancement, nil
}

func (m *fakeModel) Rerank(_ context.Context, query string, candidates []Candidate, topK int) ([]Judgment, error) {
	m.rerankCalls++
	m.lastTopK = topK
	m.lastCands = candidates
	if m.rerank == nil {
		return nil, nil
	}
	return m.rerank(query, candidates, topK)
}

// makeRecords builds n records for a segment with descending scores starting at top.
func makeRecords(seg Segment, n int, top float32) []Record {
	out := make([]Record, n)
	for i := range out {
		id := fmt.Sprintf("%s-%d", seg, i)
		out[i] = Record{
			Score:      top - float32(i)*0.01,
			Segment:    seg,
			OriginalID: id,
			Content:    "content of " + id,
			Payload:    map[string]any{FieldOriginalID: id, FieldSegment: string(seg)},
		}
	}
	return out
}
