// Package middleware provides the HTTP middleware chain of the service:
// request IDs, Prometheus metrics and request timeouts.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/metrics"
)

const postingsPrefix = "/api/v1/postings/"

var knownPaths = map[string]bool{
	"/api/v1/search":           true,
	"/api/v1/postings":         true,
	"/api/v1/cache/stats":      true,
	"/api/v1/cache/invalidate": true,
	"/health/live":             true,
	"/health/ready":            true,
}

// Metrics records request count, latency and in-flight requests per method
// and route.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			route := routeLabel(r.URL.Path)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.statusCode())).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.code == 0 {
		sr.code = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.code == 0 {
		sr.code = http.StatusOK
	}
	return sr.ResponseWriter.Write(b)
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func (sr *statusRecorder) statusCode() int {
	if sr.code == 0 {
		return http.StatusOK
	}
	return sr.code
}

// routeLabel keeps the label set bounded: per-term paths collapse to one
// route and unknown paths to "other".
func routeLabel(path string) string {
	switch {
	case knownPaths[path]:
		return path
	case strings.HasPrefix(path, postingsPrefix) && len(path) > len(postingsPrefix):
		return postingsPrefix + "{term}"
	default:
		return "other"
	}
}
