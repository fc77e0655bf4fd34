package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/knoguchi/catalogsearch/internal/search"
)

type searchRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k"`
}

type deleteEntryRequest struct {
	Segment    search.Segment `json:"name_space"`
	OriginalID string         `json:"original_id"`
}

type deleteEntryResponse struct {
	Message    string         `json:"message"`
	Segment    search.Segment `json:"name_space"`
	OriginalID string         `json:"original_id"`
	Deleted    bool           `json:"deleted"`
}

// handleSearch runs the pipeline. Only malformed requests are rejected; a degraded
// search is still a 200.
func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	topK := s.defaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if topK < search.MinTopK || topK > search.MaxTopK {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("top_k must be between %d and %d", search.MinTopK, search.MaxTopK))
		return
	}

	ctx := r.Context()
	if s.searchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.searchTimeout)
		defer cancel()
	}

	writeJSON(w, http.StatusOK, s.services.Search.IntelligentSearch(ctx, query, topK))
}

func (s *HTTPServer) handleInitialize(w http.ResponseWriter, r *http.Request) {
	created, err := s.services.Store.EnsureCollection(r.Context(), s.embeddingDimension)
	if err != nil {
		s.logger.Error("failed to initialize collection", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to initialize collection: %v", err))
		return
	}

	msg := "Collection already exists"
	if created {
		msg = "Collection initialized successfully"
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "created": created})
}

func (s *HTTPServer) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	var req deleteEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.OriginalID = strings.TrimSpace(req.OriginalID)
	if !req.Segment.Valid() {
		writeError(w, http.StatusBadRequest, "name_space must be event or product")
		return
	}
	if req.OriginalID == "" {
		writeError(w, http.StatusBadRequest, "original_id must not be empty")
		return
	}

	deleted, err := s.services.Store.DeleteEntry(r.Context(), req.Segment, req.OriginalID)
	if err != nil {
		s.logger.Error("failed to delete entry",
			"name_space", req.Segment,
			"original_id", req.OriginalID,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("failed to delete entry with name_space=%q and original_id=%q: %v", req.Segment, req.OriginalID, err))
		return
	}

	msg := "No matching entries found"
	if deleted {
		msg = "Entry deleted successfully"
	}
	writeJSON(w, http.StatusOK, deleteEntryResponse{
		Message:    msg,
		Segment:    req.Segment,
		OriginalID: req.OriginalID,
		Deleted:    deleted,
	})
}
