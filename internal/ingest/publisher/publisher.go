// Package publisher hands accepted posting events to their sink: a Kafka
// topic when the pipeline is distributed, or the local applier otherwise.
package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/kafka"
)

// Sink accepts stamped, validated events.
type Sink interface {
	Publish(ctx context.Context, e *ingest.PostingEvent) error
}

// EventProducer is the part of *kafka.Producer the publisher uses.
type EventProducer interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// KafkaSink publishes events keyed by their partition key. Acceptance is
// asynchronous: the index changes once the consumer applies the event.
type KafkaSink struct {
	producer EventProducer
	logger   *slog.Logger
}

func NewKafka(producer EventProducer) *KafkaSink {
	return &KafkaSink{
		producer: producer,
		logger:   slog.Default().With("component", "postings-publisher"),
	}
}

func (k *KafkaSink) Publish(ctx context.Context, e *ingest.PostingEvent) error {
	if err := k.producer.Publish(ctx, kafka.Event{Key: e.PartitionKey(), Value: e}); err != nil {
		return fmt.Errorf("publishing event %s: %w", e.EventID, err)
	}
	k.logger.Debug("event published", "event_id", e.EventID, "op", e.Op, "key", e.PartitionKey())
	return nil
}

// ApplyFunc applies one event synchronously, e.g. (*consumer.Applier).Apply.
type ApplyFunc func(ctx context.Context, e *ingest.PostingEvent) error

// Direct applies events in-process without a broker.
type Direct struct {
	apply ApplyFunc
}

func NewDirect(apply ApplyFunc) *Direct {
	return &Direct{apply: apply}
}

func (d *Direct) Publish(ctx context.Context, e *ingest.PostingEvent) error {
	return d.apply(ctx, e)
}
