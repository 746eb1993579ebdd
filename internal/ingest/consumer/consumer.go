// Package consumer applies posting events to the in-memory index, mirroring
// them to the store and invalidating cached query results as it goes.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/ingest/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/metrics"
)

// EventStore persists events; *store.Store implements it.
type EventStore interface {
	Apply(ctx context.Context, e *ingest.PostingEvent) error
}

// CacheInvalidator drops cached query results; *cache.QueryCache implements it.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Applier is the single write path into the index. store and cache are
// optional and must be passed as untyped nil when absent. Apply is safe for
// concurrent use: events reach the store and the index in the same order.
type Applier struct {
	// mu spans the store write and the index mutation of one event.
	mu      sync.Mutex
	index   *index.MemoryIndex
	store   EventStore
	cache   CacheInvalidator
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewApplier(idx *index.MemoryIndex, store EventStore, cache CacheInvalidator, m *metrics.Metrics) *Applier {
	return &Applier{
		index:   idx,
		store:   store,
		cache:   cache,
		metrics: m,
		logger:  slog.Default().With("component", "postings-applier"),
	}
}

// Apply validates e, persists it, then mutates the index. A failed cache
// invalidation is logged and does not undo the mutation.
func (a *Applier) Apply(ctx context.Context, e *ingest.PostingEvent) error {
	if err := validator.Validate(e); err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, err, "rejected event")
	}
	changed, err := a.persistAndMutate(ctx, e)
	a.metrics.ObservePostingOp(string(e.Op), changed, err)
	if err != nil {
		return err
	}
	if a.metrics != nil {
		a.metrics.IndexTerms.Set(float64(a.index.Terms()))
	}
	a.logger.Debug("event applied",
		"event_id", e.EventID,
		"op", e.Op,
		"term", e.Term,
		"doc_id", e.DocID,
		"changed", changed,
	)

	if changed && a.cache != nil {
		if err := a.cache.Invalidate(ctx); err != nil {
			a.logger.Warn("cache invalidation failed", "event_id", e.EventID, "error", err)
		}
	}
	return nil
}

func (a *Applier) persistAndMutate(ctx context.Context, e *ingest.PostingEvent) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e.Op == ingest.OpMerge && a.index.DocFreq(e.FromTerm) == 0 {
		return false, apperrors.Newf(apperrors.ErrTermNotFound, http.StatusNotFound, "term %q not found", e.FromTerm)
	}
	if a.store != nil {
		if err := a.store.Apply(ctx, e); err != nil {
			return false, apperrors.Wrap(apperrors.ErrUnavailable, err, "persisting event")
		}
	}
	return a.mutate(e)
}

func (a *Applier) mutate(e *ingest.PostingEvent) (bool, error) {
	switch e.Op {
	case ingest.OpAdd:
		return a.index.Add(e.Term, e.DocID), nil
	case ingest.OpRemove:
		return a.index.Remove(e.Term, e.DocID), nil
	case ingest.OpRemoveDoc:
		return a.index.RemoveDocument(e.DocID) > 0, nil
	case ingest.OpMerge:
		// from_term disappears even when it adds no new ids.
		if _, err := a.index.MergeTerms(e.Term, e.FromTerm); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, fmt.Errorf("unsupported op %q", e.Op)
}

// HandleMessage returns a kafka.MessageHandler that decodes posting events and
// applies them. Undecodable or rejected events are logged and committed;
// only backend failures leave the message uncommitted.
func HandleMessage(idx *index.MemoryIndex, store EventStore, cache CacheInvalidator, m *metrics.Metrics) kafka.MessageHandler {
	applier := NewApplier(idx, store, cache, m)
	logger := slog.Default().With("component", "postings-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingest.PostingEvent](value)
		if err != nil {
			logger.Error("failed to decode posting event", "key", string(key), "error", err)
			return nil
		}
		err = applier.Apply(ctx, &event)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, apperrors.ErrInvalidInput), errors.Is(err, apperrors.ErrTermNotFound):
			logger.Warn("posting event skipped",
				"event_id", event.EventID,
				"op", event.Op,
				"error", err,
			)
			return nil
		default:
			return fmt.Errorf("applying event %s: %w", event.EventID, err)
		}
	}
}
