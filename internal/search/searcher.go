package search

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Searcher fans a query out to every targeted segment and merges the results.
type Searcher struct {
	embedder  Embedder
	retriever *Retriever
	logger    *slog.Logger
}

// NewSearcher creates a Searcher.
func NewSearcher(embedder Embedder, retriever *Retriever, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{
		embedder:  embedder,
		retriever: retriever,
		logger:    logger,
	}
}

// Search embeds the enhanced query and retrieves records for each targeted segment.
// Multi-segment results are sorted by score, highest first, ties in segment order.
// An embedding failure yields no results rather than an error. A segment whose share
// of limit is zero is not queried. A panic in a segment retrieval is re-raised on the
// calling goroutine once every retrieval has returned.
func (s *Searcher) Search(ctx context.Context, enh QueryEnhancement, limit int) []Record {
	segments := enh.Segments.Segments()
	if len(segments) == 0 {
		s.logger.Warn("no searchable segments", "search_type", enh.Segments)
		return []Record{}
	}

	vectors, err := s.embedAll(ctx, enh, segments)
	if err != nil {
		s.logger.Warn("query embedding failed", "error", err)
		return []Record{}
	}

	if len(segments) == 1 {
		return s.retriever.Retrieve(ctx, segments[0], enh, vectors[0], limit)
	}

	limits := splitLimit(limit, len(segments))
	perSegment := make([][]Record, len(segments))

	// Retrieve never fails, so the group only joins the goroutines
	var (
		g         errgroup.Group
		panicOnce sync.Once
		panicked  any
	)
	for i, seg := range segments {
		if limits[i] == 0 {
			s.logger.Debug("skipping segment with no share of the limit", "segment", seg, "limit", limit)
			continue
		}
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("panic in segment retrieval", "segment", seg, "panic", r)
					panicOnce.Do(func() { panicked = r })
				}
			}()
			perSegment[i] = s.retriever.Retrieve(ctx, seg, enh, vectors[i], limits[i])
			return nil
		})
	}
	_ = g.Wait()
	if panicked != nil {
		panic(panicked)
	}

	merged := make([]Record, 0, limit)
	for _, records := range perSegment {
		merged = append(merged, records...)
	}
	slices.SortStableFunc(merged, func(a, b Record) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	return merged
}

// embedAll embeds the per-segment query text, reusing the vector when two segments
// share the same text.
func (s *Searcher) embedAll(ctx context.Context, enh QueryEnhancement, segments []Segment) ([][]float32, error) {
	vectors := make([][]float32, len(segments))
	seen := make(map[string][]float32, len(segments))

	for i, seg := range segments {
		text := strings.TrimSpace(enh.QueryFor(seg))
		if v, ok := seen[text]; ok {
			vectors[i] = v
			continue
		}
		v, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		seen[text] = v
		vectors[i] = v
	}

	return vectors, nil
}

// splitLimit divides limit across n segments; the remainder goes to the first
// segments so the shares always add up to limit.
func splitLimit(limit, n int) []int {
	shares := make([]int, n)
	base, rem := limit/n, limit%n
	for i := range shares {
		shares[i] = base
		if i < rem {
			shares[i]++
		}
	}
	return shares
}
