package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/acme/agent-ivr/internal/queue"
	"github.com/acme/agent-ivr/pkg/clock"
)

type sliceReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
	cancel    context.CancelFunc
	closed    bool
}

func (r *sliceReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *sliceReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *sliceReader) Close() error {
	r.closed = true
	return nil
}

func encode(t *testing.T, evt queue.CallEvent) kafka.Message {
	t.Helper()
	value, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return kafka.Message{Key: []byte(evt.SessionID), Value: value}
}

func TestRunConsumesAndCommitsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &sliceReader{
		cancel: cancel,
		msgs: []kafka.Message{
			encode(t, queue.CallEvent{SessionID: "s1", CallID: "call_1", Status: "connected", Level: "success"}),
			{Value: []byte("not json")},
			encode(t, queue.CallEvent{SessionID: "s1", Status: "idle", Level: "error"}),
		},
	}
	w := NewWithReader(reader, nil)

	if err := w.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if len(reader.committed) != 3 {
		t.Fatalf("expected every message committed, got %d", len(reader.committed))
	}
	if !reader.closed {
		t.Fatalf("expected reader closed")
	}
	counts := w.Counts()
	if counts["success"] != 1 || counts["error"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

type failingReader struct {
	fetches atomic.Int32
}

func (r *failingReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.fetches.Add(1)
	if err := ctx.Err(); err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{}, errors.New("broker unavailable")
}

func (r *failingReader) CommitMessages(context.Context, ...kafka.Message) error { return nil }

func (r *failingReader) Close() error { return nil }

func TestRunBacksOffOnFetchErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fc := clock.Fake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	reader := &failingReader{}
	w := NewWithReader(reader, nil, WithClock(fc))

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	fc.WaitForTimers(1)
	if got := reader.fetches.Load(); got != 1 {
		t.Fatalf("expected one fetch before the first backoff, got %d", got)
	}

	fc.Advance(minFetchBackoff)
	fc.WaitForTimers(1)
	if got := reader.fetches.Load(); got != 2 {
		t.Fatalf("expected a retry after the first backoff, got %d", got)
	}

	// The second wait is doubled.
	fc.Advance(minFetchBackoff)
	if got := reader.fetches.Load(); got != 2 {
		t.Fatalf("retried before the doubled backoff elapsed: %d fetches", got)
	}
	fc.Advance(minFetchBackoff)
	fc.WaitForTimers(1)
	if got := reader.fetches.Load(); got != 3 {
		t.Fatalf("expected a third fetch, got %d", got)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("worker did not stop after cancellation")
	}
}
