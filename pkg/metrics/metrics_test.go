package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObservePostingOp(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObservePostingOp("add", true, nil)
	m.ObservePostingOp("add", false, nil)
	m.ObservePostingOp("add", false, nil)
	m.ObservePostingOp("merge", false, errors.New("boom"))

	require.Equal(t, 1.0, testutil.ToFloat64(m.PostingOpsTotal.WithLabelValues("add", "changed")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.PostingOpsTotal.WithLabelValues("add", "unchanged")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.PostingOpsTotal.WithLabelValues("merge", "error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObservePostingOp("add", true, nil)
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)
	m.IndexTerms.Set(3)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "index_terms 3")
}
