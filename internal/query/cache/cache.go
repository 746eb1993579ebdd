package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/query/executor"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/query/parser"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "postings:query:"

// Store is the key-value backend of the cache; pkg/redis.Client implements it.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	isMiss  func(error) bool
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64

	// generation is part of every key. Invalidate bumps it, so a result
	// computed before an invalidation can only be stored under a key no
	// later lookup uses.
	generation atomic.Uint64
}

// New creates a QueryCache. isMiss reports whether a Get error means the key
// is absent rather than a backend failure. m may be nil. Backend calls go
// through a circuit breaker, so an unreachable store degrades to misses
// without paying a network timeout per query.
func New(store Store, ttl time.Duration, isMiss func(error) bool, m *metrics.Metrics) *QueryCache {
	c := &QueryCache{
		store:   store,
		ttl:     ttl,
		isMiss:  isMiss,
		metrics: m,
		breaker: resilience.NewCircuitBreaker("query-cache", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     10 * time.Second,
		}),
		logger: slog.Default().With("component", "query-cache"),
	}
	// Entries left in the store by an earlier process are never read.
	c.generation.Store(uint64(time.Now().UnixNano()))
	return c
}

func (c *QueryCache) Get(ctx context.Context, plan *parser.QueryPlan, limit int) (*executor.SearchResult, bool) {
	return c.get(ctx, plan, buildKey(plan, limit, c.generation.Load()))
}

func (c *QueryCache) get(ctx context.Context, plan *parser.QueryPlan, key string) (*executor.SearchResult, bool) {
	var data string
	absent := false
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.store.Get(ctx, key)
		if err != nil && c.isMiss(err) {
			absent = true
			return nil
		}
		return err
	})
	if err != nil || absent {
		if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "query", plan.RawQuery, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, plan *parser.QueryPlan, limit int, result *executor.SearchResult) {
	c.set(ctx, buildKey(plan, limit, c.generation.Load()), result)
}

func (c *QueryCache) set(ctx context.Context, key string, result *executor.SearchResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for plan or computes and stores it.
// Concurrent misses for the same key share one computation. The bool reports
// a cache hit. A result whose computation overlaps an Invalidate is returned
// but never served from the cache afterwards.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	plan *parser.QueryPlan,
	limit int,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	key := buildKey(plan, limit, c.generation.Load())
	if result, ok := c.get(ctx, plan, key); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate drops every cached query. Called whenever postings change. It
// bypasses the breaker: a skipped invalidation would leave stale results.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	c.generation.Add(1)
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Debug("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func buildKey(plan *parser.QueryPlan, limit int, generation uint64) string {
	raw := fmt.Sprintf("%s:limit=%d:gen=%d", plan.Canonical(), limit, generation)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
