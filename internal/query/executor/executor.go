package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/postings"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/query/parser"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/tracing"
)

const defaultLimit = 10

// Index is the read side of the inverted index. Lookup must return a list the
// caller owns.
type Index interface {
	Lookup(term string) *postings.List
}

type SearchResult struct {
	Query     string         `json:"query"`
	TotalHits int            `json:"total_hits"`
	DocIDs    []int          `json:"doc_ids"`
	TermStats map[string]int `json:"term_stats"`
}

type Executor struct {
	index   Index
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an Executor. m may be nil.
func New(idx Index, m *metrics.Metrics) *Executor {
	return &Executor{
		index:   idx,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	start := time.Now()
	if limit <= 0 {
		limit = defaultLimit
	}
	if len(plan.Terms) == 0 {
		return &SearchResult{
			Query:     plan.RawQuery,
			DocIDs:    []int{},
			TermStats: map[string]int{},
		}, nil
	}

	_, span := tracing.Start(ctx, "lookup")
	termStats := make(map[string]int, len(plan.Terms))
	lists := make([]*postings.List, 0, len(plan.Terms))
	for _, term := range plan.Terms {
		if err := ctx.Err(); err != nil {
			span.End()
			e.observe(plan, "error", 0, start)
			return nil, fmt.Errorf("looking up term %q: %w", term, err)
		}
		list := e.index.Lookup(term)
		termStats[term] = list.Len()
		lists = append(lists, list)
	}
	span.SetAttr("terms", len(lists))
	span.End()

	_, span = tracing.Start(ctx, "combine")
	var result *postings.List
	switch plan.Type {
	case parser.QueryAND:
		result = intersectAll(lists)
	case parser.QueryOR:
		result = unionAll(lists)
	default:
		span.End()
		e.observe(plan, "error", 0, start)
		return nil, fmt.Errorf("unsupported query type %d", plan.Type)
	}
	span.SetAttr("operator", plan.Type.String())
	span.SetAttr("hits", result.Len())
	span.End()

	_, span = tracing.Start(ctx, "exclude")
	excluded := 0
	for _, term := range plan.ExcludeTerms {
		if result.IsEmpty() {
			break
		}
		if err := ctx.Err(); err != nil {
			span.End()
			e.observe(plan, "error", 0, start)
			return nil, fmt.Errorf("excluding term %q: %w", term, err)
		}
		excluded += result.RemoveAll(e.index.Lookup(term))
	}
	span.SetAttr("excluded", excluded)
	span.End()

	docIDs := make([]int, 0, min(limit, result.Len()))
	for id := range result.All() {
		if len(docIDs) == limit {
			break
		}
		docIDs = append(docIDs, id)
	}

	resultType := "hit"
	if result.IsEmpty() {
		resultType = "zero_result"
	}
	e.observe(plan, resultType, result.Len(), start)
	e.logger.Info("query executed",
		"query", plan.RawQuery,
		"operator", plan.Type.String(),
		"terms", plan.Terms,
		"excluded", plan.ExcludeTerms,
		"total_hits", result.Len(),
		"returned", len(docIDs),
	)
	return &SearchResult{
		Query:     plan.RawQuery,
		TotalHits: result.Len(),
		DocIDs:    docIDs,
		TermStats: termStats,
	}, nil
}

func (e *Executor) observe(plan *parser.QueryPlan, resultType string, hits int, start time.Time) {
	if e.metrics == nil {
		return
	}
	op := plan.Type.String()
	e.metrics.SearchQueriesTotal.WithLabelValues(op, resultType).Inc()
	e.metrics.SearchLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if resultType != "error" {
		e.metrics.SearchResultsCount.Observe(float64(hits))
	}
}

// intersectAll starts from the shortest list so intermediate results stay
// small and an empty operand ends the fold early.
func intersectAll(lists []*postings.List) *postings.List {
	sort.SliceStable(lists, func(i, j int) bool {
		return lists[i].Len() < lists[j].Len()
	})
	result := lists[0]
	for _, l := range lists[1:] {
		if result.IsEmpty() {
			break
		}
		result = result.Intersect(l)
	}
	return result
}

func unionAll(lists []*postings.List) *postings.List {
	result := lists[0]
	for _, l := range lists[1:] {
		result = result.Union(l)
	}
	return result
}
