package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/knoguchi/catalogsearch/internal/metrics"
)

const (
	// maxKeywordPressure caps how many keyword conditions must hold on the first attempt
	maxKeywordPressure = 3

	// Result counts a segment must exceed before relaxation stops
	enoughSingleSegment = 5
	enoughPerSegment    = 2
)

// Retriever queries the vector store for one segment, relaxing the keyword
// requirement until enough records come back.
type Retriever struct {
	store    VectorStore
	resolver *Resolver
	logger   *slog.Logger
}

// NewRetriever creates a Retriever.
func NewRetriever(store VectorStore, resolver *Resolver, logger *slog.Logger) *Retriever {
	if resolver == nil {
		resolver = NewResolver()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		store:    store,
		resolver: resolver,
		logger:   logger,
	}
}

// Retrieve returns the first result set larger than the segment threshold, or the last
// successful one once the keyword requirement has been relaxed to zero. Store errors
// are logged and treated as a reason to relax. Relaxation stops once ctx is done.
// Records are returned in store order.
func (r *Retriever) Retrieve(ctx context.Context, segment Segment, enh QueryEnhancement, vector []float32, limit int) []Record {
	filter := r.resolver.Resolve(segment, enh)

	required := enoughSingleSegment
	if enh.Segments == SelectBoth {
		required = enoughPerSegment
	}

	var (
		last  []Record
		calls int
	)
	defer func() {
		metrics.RelaxationSteps.WithLabelValues(string(segment)).Observe(float64(calls))
	}()

	for minShould := min(maxKeywordPressure, len(enh.Keywords)); minShould >= 0; minShould-- {
		if err := ctx.Err(); err != nil {
			r.logger.Debug("retrieval abandoned", "segment", segment, "min_should", minShould, "error", err)
			break
		}
		calls++
		start := time.Now()
		res, err := r.store.Query(ctx, vector, filter.WithMinShould(minShould), limit)
		metrics.StoreQueryDuration.WithLabelValues(string(segment)).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.StoreQueriesTotal.WithLabelValues(string(segment), "error").Inc()
			r.logger.Warn("vector store query failed, relaxing filter",
				"segment", segment,
				"min_should", minShould,
				"error", err,
			)
			continue
		}
		metrics.StoreQueriesTotal.WithLabelValues(string(segment), "ok").Inc()

		last = res.Records
		if len(last) > required {
			break
		}

		r.logger.Debug("too few results, relaxing filter",
			"segment", segment,
			"min_should", minShould,
			"results", len(last),
			"required", required+1,
		)
	}

	if last == nil {
		last = []Record{}
	}
	return last
}
