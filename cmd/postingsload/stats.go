package main

import (
	"fmt"
	"io"
	"math"
	"slices"
	"sync"
	"time"
)

// Stats collects per-endpoint outcomes from all workers.
type Stats struct {
	mu        sync.Mutex
	endpoints map[string]*endpointStats
}

type endpointStats struct {
	errors      int
	latencies   []time.Duration
	statusCodes map[int]int
}

func NewStats() *Stats {
	return &Stats{endpoints: make(map[string]*endpointStats)}
}

// Record notes one request. A non-nil err means no response arrived.
func (s *Stats) Record(endpoint string, d time.Duration, statusCode int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	es, ok := s.endpoints[endpoint]
	if !ok {
		es = &endpointStats{statusCodes: make(map[int]int)}
		s.endpoints[endpoint] = es
	}
	if err != nil {
		es.errors++
		return
	}
	if statusCode >= 500 {
		es.errors++
	}
	es.latencies = append(es.latencies, d)
	es.statusCodes[statusCode]++
}

func (s *Stats) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, es := range s.endpoints {
		total += es.requests()
	}
	return total
}

func (es *endpointStats) requests() int {
	n := 0
	for _, c := range es.statusCodes {
		n += c
	}
	return n + es.transportErrors()
}

func (es *endpointStats) transportErrors() int {
	serverErrors := 0
	for code, c := range es.statusCodes {
		if code >= 500 {
			serverErrors += c
		}
	}
	return es.errors - serverErrors
}

// Report prints a summary per endpoint, in name order.
func (s *Stats) Report(w io.Writer, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.endpoints))
	for name := range s.endpoints {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		es := s.endpoints[name]
		total := es.requests()
		fmt.Fprintf(w, "=== %s ===\n", name)
		fmt.Fprintf(w, "Requests:     %d (%.1f/s)\n", total, float64(total)/elapsed.Seconds())
		fmt.Fprintf(w, "Errors:       %d\n", es.errors)
		if len(es.latencies) > 0 {
			sorted := slices.Clone(es.latencies)
			slices.Sort(sorted)
			fmt.Fprintf(w, "Latency:      min %s  p50 %s  p90 %s  p99 %s  max %s\n",
				sorted[0],
				percentile(sorted, 50),
				percentile(sorted, 90),
				percentile(sorted, 99),
				sorted[len(sorted)-1],
			)
		}
		codes := make([]int, 0, len(es.statusCodes))
		for code := range es.statusCodes {
			codes = append(codes, code)
		}
		slices.Sort(codes)
		for _, code := range codes {
			fmt.Fprintf(w, "  %d: %d\n", code, es.statusCodes[code])
		}
		fmt.Fprintln(w)
	}
}

// percentile uses the nearest-rank method on ascending latencies.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
