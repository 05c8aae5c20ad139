package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/acme/agent-ivr/internal/app"
	"github.com/acme/agent-ivr/internal/domain"
	"github.com/acme/agent-ivr/internal/queue"
	"github.com/acme/agent-ivr/pkg/clock"
	"github.com/acme/agent-ivr/pkg/logger"
)

const (
	minFetchBackoff = 100 * time.Millisecond
	maxFetchBackoff = 5 * time.Second
)

// Reader is the subset of *kafka.Reader the worker needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Worker consumes call lifecycle events and writes them to the log.
type Worker struct {
	reader Reader
	logger *logger.Logger
	tracer trace.Tracer
	clock  clock.Clock

	mu     sync.Mutex
	counts map[string]int
}

// Option customises a Worker.
type Option func(*Worker)

// WithClock sets the clock used for fetch retry backoff.
func WithClock(c clock.Clock) Option {
	return func(w *Worker) { w.clock = c }
}

// New creates a worker reading the configured event topic.
func New(container *app.Container, opts ...Option) *Worker {
	cfg := container.Config.Kafka
	reader := container.Kafka.NewReader(cfg.EventTopic, cfg.ConsumerGroupID)
	return NewWithReader(reader, container.Logger, opts...)
}

// NewWithReader creates a worker over an existing reader.
func NewWithReader(reader Reader, lg *logger.Logger, opts ...Option) *Worker {
	if lg == nil {
		lg = logger.NewNop()
	}
	w := &Worker{
		reader: reader,
		logger: lg,
		tracer: otel.Tracer("ivr.eventworker"),
		clock:  clock.Real(),
		counts: make(map[string]int),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes events until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	defer w.reader.Close()

	backoff := minFetchBackoff
	for {
		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("event worker: fetch", zap.Error(err), zap.Duration("retry_in", backoff))
			if !clock.Sleep(w.clock, backoff, ctx.Done()) {
				return ctx.Err()
			}
			backoff = min(backoff*2, maxFetchBackoff)
			continue
		}
		backoff = minFetchBackoff

		w.handle(ctx, msg)

		if err := w.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("event worker: commit", zap.Error(err))
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg kafka.Message) {
	var evt queue.CallEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		w.logger.Error("event worker: unmarshal",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return
	}

	_, span := w.tracer.Start(ctx, "ivr.event.consume", trace.WithAttributes(
		attribute.String("session.id", evt.SessionID),
		attribute.String("call.id", evt.CallID),
		attribute.String("call.status", evt.Status),
	))
	defer span.End()

	w.mu.Lock()
	w.counts[evt.Level]++
	w.mu.Unlock()

	if !domain.CallStatus(evt.Status).Valid() {
		w.logger.Warn("event worker: unknown call status",
			zap.String("status", evt.Status),
			zap.Int64("offset", msg.Offset),
		)
	}

	fields := []zap.Field{
		zap.String("session_id", evt.SessionID),
		zap.String("call_id", evt.CallID),
		zap.String("status", evt.Status),
		zap.String("title", evt.Title),
		zap.String("message", evt.Message),
		zap.Time("occurred_at", evt.OccurredAt),
	}
	if evt.Level == "error" {
		w.logger.Warn("call event", fields...)
		return
	}
	w.logger.Info("call event", fields...)
}

// Counts returns how many events were seen per notification level.
func (w *Worker) Counts() map[string]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]int, len(w.counts))
	for k, v := range w.counts {
		out[k] = v
	}
	return out
}
