package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/query/executor"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/query/parser"
	"github.com/stretchr/testify/require"
)

func newHandler() *Handler {
	mi := index.NewMemoryIndex()
	for _, id := range []int{1, 3, 5} {
		mi.Add("go", id)
	}
	for _, id := range []int{3, 5, 7} {
		mi.Add("rust", id)
	}
	return New(executor.New(mi, nil), nil, 10, 2)
}

func search(t *testing.T, h *Handler, target string) (*httptest.ResponseRecorder, executor.SearchResult) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var res executor.SearchResult
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	}
	return rec, res
}

func TestSearch(t *testing.T) {
	h := newHandler()

	rec, res := search(t, h, "/api/v1/search?q=go+AND+rust")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []int{3, 5}, res.DocIDs)
	require.Equal(t, 2, res.TotalHits)

	rec, res = search(t, h, "/api/v1/search?q=go+OR+rust&limit=50")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []int{1, 3}, res.DocIDs, "limit is capped at maxResults")
	require.Equal(t, 4, res.TotalHits)

	rec, res = search(t, h, "/api/v1/search?q=AND")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, res.DocIDs)
}

func TestSearchBadRequests(t *testing.T) {
	h := newHandler()
	for _, target := range []string{
		"/api/v1/search",
		"/api/v1/search?q=go&limit=0",
		"/api/v1/search?q=go&limit=abc",
	} {
		rec, _ := search(t, h, target)
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

type failingExecutor struct{}

func (failingExecutor) Execute(ctx context.Context, _ *parser.QueryPlan, _ int) (*executor.SearchResult, error) {
	return nil, context.DeadlineExceeded
}

func TestSearchExecutorFailure(t *testing.T) {
	h := New(failingExecutor{}, nil, 10, 100)
	rec, _ := search(t, h, "/api/v1/search?q=go")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCacheEndpointsWhenDisabled(t *testing.T) {
	h := newHandler()
	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"disabled"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
