package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/acme/agent-ivr/internal/domain"
	"github.com/acme/agent-ivr/pkg/logger"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventPublisher publishes call events. It also satisfies notify.Notifier
// so it can sit next to the per-session buffer.
type EventPublisher struct {
	writer MessageWriter
	logger *logger.Logger
}

// NewEventPublisher constructs a publisher for the given topic.
func NewEventPublisher(k *Kafka, topic string, lg *logger.Logger) *EventPublisher {
	return NewEventPublisherWithWriter(k.NewWriter(topic), lg)
}

// NewEventPublisherWithWriter wraps an existing writer.
func NewEventPublisherWithWriter(w MessageWriter, lg *logger.Logger) *EventPublisher {
	if lg == nil {
		lg = logger.NewNop()
	}
	return &EventPublisher{writer: w, logger: lg}
}

// Publish emits an event to Kafka.
func (p *EventPublisher) Publish(ctx context.Context, evt CallEvent) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("event publisher: marshal message: %w", err)
	}
	record := kafka.Message{
		Key:   []byte(evt.SessionID),
		Value: value,
		Time:  evt.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, record); err != nil {
		return fmt.Errorf("event publisher: write message: %w", err)
	}
	return nil
}

// Notify publishes n and logs failures. Event delivery never affects the
// call lifecycle.
func (p *EventPublisher) Notify(ctx context.Context, n domain.Notification) {
	if err := p.Publish(ctx, EventFromNotification(n)); err != nil {
		p.logger.Warn("event publisher: dropped event",
			zap.String("session_id", n.SessionID),
			zap.String("title", n.Title),
			zap.Error(err),
		)
	}
}

// Close closes the publisher.
func (p *EventPublisher) Close() error {
	return p.writer.Close()
}
