package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	fetchErrs int
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.fetchErrs > 0 {
		r.fetchErrs--
		r.mu.Unlock()
		return kafka.Message{}, errors.New("broker unavailable")
	}
	if len(r.msgs) > 0 {
		msg := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func TestConsumerCommitsHandledMessages(t *testing.T) {
	r := &fakeReader{
		fetchErrs: 1,
		msgs: []kafka.Message{
			{Offset: 1, Value: []byte("ok")},
			{Offset: 2, Value: []byte("fail")},
			{Offset: 3, Value: []byte("ok")},
		},
	}
	var handled sync.WaitGroup
	handled.Add(3)
	c := newConsumer(r, "postings-events", func(_ context.Context, _, value []byte) error {
		defer handled.Done()
		if string(value) == "fail" {
			return errors.New("boom")
		}
		return nil
	})
	c.retryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()
	handled.Wait()
	cancel()
	require.NoError(t, <-done)

	r.mu.Lock()
	require.Equal(t, []int64{1, 3}, r.committed)
	r.mu.Unlock()
	require.False(t, r.closed)
	require.NoError(t, c.Close())
	require.True(t, r.closed)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducerPublish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "postings-events")
	err := p.Publish(context.Background(),
		Event{Key: "go", Value: map[string]int{"doc_id": 1}},
		Event{Key: "rust", Value: map[string]int{"doc_id": 2}},
	)
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)
	require.Equal(t, "go", string(w.msgs[0].Key))
	var v map[string]int
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &v))
	require.Equal(t, 2, v["doc_id"])

	w.err = errors.New("no leader")
	require.Error(t, p.Publish(context.Background(), Event{Key: "go", Value: 1}))
	require.Error(t, p.Publish(context.Background(), Event{Key: "bad", Value: func() {}}))
}

func TestDecodeJSON(t *testing.T) {
	v, err := DecodeJSON[map[string]string]([]byte(`{"op":"add"}`))
	require.NoError(t, err)
	require.Equal(t, "add", v["op"])
	_, err = DecodeJSON[map[string]string]([]byte(`{`))
	require.Error(t, err)
}
