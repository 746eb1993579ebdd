package publisher

import (
	"context"
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/kafka"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	events []kafka.Event
	err    error
}

func (p *fakeProducer) Publish(_ context.Context, events ...kafka.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

func TestKafkaSinkKeysByTerm(t *testing.T) {
	p := &fakeProducer{}
	sink := NewKafka(p)
	ctx := context.Background()

	require.NoError(t, sink.Publish(ctx, &ingest.PostingEvent{Op: ingest.OpAdd, Term: "go", DocID: 1, EventID: "a"}))
	require.NoError(t, sink.Publish(ctx, &ingest.PostingEvent{Op: ingest.OpRemoveDoc, DocID: 9, EventID: "b"}))
	require.Len(t, p.events, 2)
	require.Equal(t, "go", p.events[0].Key)
	require.Equal(t, "doc:9", p.events[1].Key)
	require.Equal(t, "a", p.events[0].Value.(*ingest.PostingEvent).EventID)

	p.err = errors.New("no brokers")
	require.ErrorIs(t, sink.Publish(ctx, &ingest.PostingEvent{Op: ingest.OpAdd, Term: "go"}), p.err)
}

func TestDirectSink(t *testing.T) {
	var got []string
	sink := NewDirect(func(_ context.Context, e *ingest.PostingEvent) error {
		got = append(got, e.Term)
		return nil
	})
	require.NoError(t, sink.Publish(context.Background(), &ingest.PostingEvent{Op: ingest.OpAdd, Term: "go"}))
	require.Equal(t, []string{"go"}, got)
}
