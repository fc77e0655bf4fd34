package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/knoguchi/catalogsearch/internal/auth"
	"github.com/knoguchi/catalogsearch/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearch struct {
	query       string
	topK        int
	hadDeadline bool
	calls       int
}

func (f *fakeSearch) IntelligentSearch(ctx context.Context, query string, topK int) *search.Response {
	f.calls++
	f.query = query
	f.topK = topK
	_, f.hadDeadline = ctx.Deadline()
	return &search.Response{
		Results: []search.Result{{
			OriginalID:      "p-1",
			Segment:         search.SegmentProduct,
			RelevanceScore:  9,
			RelevanceReason: "match",
			Payload:         map[string]any{"content": "linen dress"},
		}},
		Enhancement:    search.DefaultEnhancement(query),
		TotalRetrieved: 4,
		FinalCount:     1,
	}
}

type fakeStore struct {
	pingErr    error
	ensureErr  error
	created    bool
	dimension  int
	deleted    bool
	deleteErr  error
	delSegment search.Segment
	delID      string
}

func (f *fakeStore) EnsureCollection(_ context.Context, dimension int) (bool, error) {
	f.dimension = dimension
	return f.created, f.ensureErr
}

func (f *fakeStore) DeleteEntry(_ context.Context, segment search.Segment, id string) (bool, error) {
	f.delSegment, f.delID = segment, id
	return f.deleted, f.deleteErr
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func newTestServer(searcher *fakeSearch, store *fakeStore, jwt *auth.JWTManager) http.Handler {
	return NewHTTPServer(HTTPServerConfig{
		DefaultTopK:        7,
		SearchTimeout:      5 * time.Second,
		EmbeddingDimension: 1536,
		AdminAuth:          jwt,
	}, Services{Search: searcher, Store: store}).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSearch(t *testing.T) {
	searcher := &fakeSearch{}
	h := newTestServer(searcher, &fakeStore{}, nil)

	rec := do(t, h, http.MethodPost, "/search", `{"query": "  summer dress  ", "top_k": 3}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "summer dress", searcher.query)
	assert.Equal(t, 3, searcher.topK)
	assert.True(t, searcher.hadDeadline)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 4, body["total_retrieved"])
	assert.EqualValues(t, 1, body["final_count"])
	results := body["results"].([]any)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	assert.Equal(t, "p-1", first["original_id"])
	assert.Equal(t, "product", first["name_space"])
	enh := body["enhancement"].(map[string]any)
	assert.Equal(t, "both", enh["search_type"])
}

func TestSearch_DefaultTopK(t *testing.T) {
	searcher := &fakeSearch{}
	h := newTestServer(searcher, &fakeStore{}, nil)

	rec := do(t, h, http.MethodPost, "/search", `{"query": "jazz"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, searcher.topK)
}

func TestSearch_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"query":`},
		{"empty query", `{"query": "   "}`},
		{"top_k zero", `{"query": "q", "top_k": 0}`},
		{"top_k too large", `{"query": "q", "top_k": 21}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &fakeSearch{}
			h := newTestServer(searcher, &fakeStore{}, nil)

			rec := do(t, h, http.MethodPost, "/search", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, searcher.calls)
		})
	}
}

func TestInitialize(t *testing.T) {
	store := &fakeStore{created: true}
	h := newTestServer(&fakeSearch{}, store, nil)

	rec := do(t, h, http.MethodPost, "/initialize", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1536, store.dimension)
	assert.Contains(t, rec.Body.String(), "Collection initialized successfully")

	store.ensureErr = errors.New("qdrant down")
	rec = do(t, h, http.MethodPost, "/initialize", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDeleteEntry(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		store := &fakeStore{deleted: true}
		h := newTestServer(&fakeSearch{}, store, nil)

		rec := do(t, h, http.MethodPost, "/delete-entry", `{"name_space": "event", "original_id": "evt-9"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, search.SegmentEvent, store.delSegment)
		assert.Equal(t, "evt-9", store.delID)

		var resp deleteEntryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Deleted)
		assert.Equal(t, "Entry deleted successfully", resp.Message)
	})

	t.Run("not found", func(t *testing.T) {
		h := newTestServer(&fakeSearch{}, &fakeStore{}, nil)

		rec := do(t, h, http.MethodPost, "/delete-entry", `{"name_space": "product", "original_id": "x"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp deleteEntryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Deleted)
		assert.Equal(t, "No matching entries found", resp.Message)
	})

	t.Run("bad segment", func(t *testing.T) {
		h := newTestServer(&fakeSearch{}, &fakeStore{}, nil)
		rec := do(t, h, http.MethodPost, "/delete-entry", `{"name_space": "venue", "original_id": "x"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("store error", func(t *testing.T) {
		h := newTestServer(&fakeSearch{}, &fakeStore{deleteErr: errors.New("timeout")}, nil)
		rec := do(t, h, http.MethodPost, "/delete-entry", `{"name_space": "event", "original_id": "x"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestAdminRoutesRequireToken(t *testing.T) {
	jwt := auth.NewJWTManager(auth.DefaultJWTConfig("secret"))
	token, err := jwt.GenerateToken("ops", auth.RoleAdmin)
	require.NoError(t, err)
	h := newTestServer(&fakeSearch{}, &fakeStore{created: true}, jwt)

	rec := do(t, h, http.MethodPost, "/initialize", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/initialize", "", "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)

	// search stays public
	rec = do(t, h, http.MethodPost, "/search", `{"query": "q"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthAndReadiness(t *testing.T) {
	store := &fakeStore{}
	h := newTestServer(&fakeSearch{}, store, nil)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/readyz", "").Code)

	store.pingErr = errors.New("connection refused")
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/readyz", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(&fakeSearch{}, &fakeStore{}, nil)

	rec := do(t, h, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(&fakeSearch{}, &fakeStore{}, nil)

	rec := do(t, h, http.MethodOptions, "/search", "", "Origin", "https://app.example.com")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
