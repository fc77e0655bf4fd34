package search

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/knoguchi/catalogsearch/internal/metrics"
)

const (
	// MinTopK and MaxTopK bound the number of reranked results a caller may ask for
	MinTopK = 1
	MaxTopK = 20

	// DefaultRetrievalLimit is how many records are retrieved before reranking
	DefaultRetrievalLimit = 15

	// DefaultPreviewLength is how many characters of content the reranker sees per record
	DefaultPreviewLength = 300
)

// State is a stage of the search pipeline
type State string

const (
	StateEnhancing   State = "enhancing"
	StateRetrieving  State = "retrieving"
	StateReranking   State = "reranking"
	StateReconciling State = "reconciling"
	StateDone        State = "done"
	StateDegraded    State = "degraded"
)

// Orchestrator runs enhance → retrieve → rerank → reconcile for a user query.
type Orchestrator struct {
	enhancer       Enhancer
	reranker       Reranker
	searcher       *Searcher
	logger         *slog.Logger
	retrievalLimit int
	previewLength  int
}

// OrchestratorOption is a functional option for configuring Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRetrievalLimit sets how many records are retrieved per search.
func WithRetrievalLimit(limit int) OrchestratorOption {
	return func(o *Orchestrator) {
		if limit > 0 {
			o.retrievalLimit = limit
		}
	}
}

// WithPreviewLength sets how much record content is sent to the reranker.
func WithPreviewLength(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.previewLength = n
		}
	}
}

// NewOrchestrator creates an Orchestrator from its collaborators.
func NewOrchestrator(enhancer Enhancer, reranker Reranker, searcher *Searcher, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		enhancer:       enhancer,
		reranker:       reranker,
		searcher:       searcher,
		logger:         slog.Default(),
		retrievalLimit: DefaultRetrievalLimit,
		previewLength:  DefaultPreviewLength,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// pipeline tracks one request through the state machine
type pipeline struct {
	state       State
	enhancement QueryEnhancement
	logger      *slog.Logger
	start       time.Time
}

func (p *pipeline) enter(next State) {
	p.logger.Debug("search state transition", "from", p.state, "to", next)
	p.state = next
}

// IntelligentSearch answers a user query with up to topK reranked results.
// It never fails: every collaborator failure, timeout or panic produces a valid,
// possibly empty, response. Callers detect degraded service through FinalCount.
func (o *Orchestrator) IntelligentSearch(ctx context.Context, query string, topK int) (resp *Response) {
	p := &pipeline{
		state:       StateEnhancing,
		enhancement: DefaultEnhancement(query),
		logger:      o.logger.With("search_id", uuid.NewString()),
		start:       time.Now(),
	}
	topK = max(MinTopK, min(MaxTopK, topK))

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic recovered in search pipeline",
				"state", p.state,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			resp = o.degrade(p, fmt.Errorf("panic: %v", r))
		}
		metrics.SearchesTotal.WithLabelValues(string(p.state)).Inc()
		p.logger.Info("search finished",
			"state", p.state,
			"total_retrieved", resp.TotalRetrieved,
			"final_count", resp.FinalCount,
			"duration", time.Since(p.start),
		)
	}()

	// Step 1: Interpret the query
	enh, err := o.enhancer.Enhance(ctx, query)
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues("enhance", "error").Inc()
		return o.degrade(p, err)
	}
	metrics.LLMRequestsTotal.WithLabelValues("enhance", "ok").Inc()
	p.enhancement = enh

	// Step 2: Retrieve across segments
	p.enter(StateRetrieving)
	records := o.searcher.Search(ctx, enh, o.retrievalLimit)
	if err := ctx.Err(); err != nil {
		return o.degrade(p, err)
	}
	if len(records) == 0 {
		p.enter(StateDone)
		return &Response{Results: []Result{}, Enhancement: enh}
	}

	// Step 3: Rerank
	p.enter(StateReranking)
	judgments, err := o.reranker.Rerank(ctx, query, o.candidates(records), topK)
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues("rerank", "error").Inc()
		return o.degrade(p, err)
	}
	metrics.LLMRequestsTotal.WithLabelValues("rerank", "ok").Inc()

	// Step 4: Join judgments back to payloads
	p.enter(StateReconciling)
	results, dropped := Reconcile(judgments, records)
	if dropped > 0 {
		metrics.DroppedJudgmentsTotal.Add(float64(dropped))
		p.logger.Debug("dropped judgments without matching record",
			"dropped", dropped,
			"judgments", len(judgments),
		)
	}

	p.enter(StateDone)
	return &Response{
		Results:        results,
		Enhancement:    enh,
		TotalRetrieved: len(records),
		FinalCount:     len(results),
		DroppedCount:   dropped,
	}
}

// degrade ends the pipeline with an empty response carrying whatever enhancement
// was produced or synthesized so far.
func (o *Orchestrator) degrade(p *pipeline, cause error) *Response {
	p.logger.Warn("search degraded", "state", p.state, "error", cause)
	p.enter(StateDegraded)
	return &Response{
		Results:     []Result{},
		Enhancement: p.enhancement,
	}
}

// candidates converts records into reranker input with truncated content
func (o *Orchestrator) candidates(records []Record) []Candidate {
	out := make([]Candidate, len(records))
	for i, r := range records {
		out[i] = Candidate{
			Segment:    r.Segment,
			OriginalID: r.OriginalID,
			Preview:    Preview(r.Content, o.previewLength),
		}
	}
	return out
}

// Preview truncates content to n characters, marking truncation with "...".
func Preview(content string, n int) string {
	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	return string(runes[:n]) + "..."
}
