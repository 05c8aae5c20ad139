// Package notify delivers transient user-facing notifications produced by
// the call lifecycle.
package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/acme/agent-ivr/internal/domain"
	"github.com/acme/agent-ivr/pkg/logger"
)

// Notifier receives notifications. Implementations must not block for
// long and must not fail the caller.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n domain.Notification)

func (f Func) Notify(ctx context.Context, n domain.Notification) { f(ctx, n) }

// Multi fans a notification out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n domain.Notification) {
	for _, target := range m {
		if target != nil {
			target.Notify(ctx, n)
		}
	}
}

// Log writes notifications to the application logger.
type Log struct {
	logger *logger.Logger
}

// NewLog constructs a logging notifier.
func NewLog(l *logger.Logger) *Log {
	return &Log{logger: l}
}

func (l *Log) Notify(_ context.Context, n domain.Notification) {
	fields := []zap.Field{
		zap.String("session_id", n.SessionID),
		zap.String("status", string(n.Status)),
	}
	if n.CallID != "" {
		fields = append(fields, zap.String("call_id", n.CallID))
	}
	if n.Level == domain.NotificationError {
		l.logger.Warn(n.Message, fields...)
		return
	}
	l.logger.Info(n.Message, fields...)
}

// Buffer keeps the most recent notifications for polling clients.
type Buffer struct {
	mu    sync.Mutex
	items []domain.Notification
	size  int
}

// NewBuffer creates a buffer holding at most size notifications.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = 20
	}
	return &Buffer{size: size}
}

func (b *Buffer) Notify(_ context.Context, n domain.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, n)
	if over := len(b.items) - b.size; over > 0 {
		b.items = append(b.items[:0:0], b.items[over:]...)
	}
}

// Snapshot returns the buffered notifications, oldest first.
func (b *Buffer) Snapshot() []domain.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Notification, len(b.items))
	copy(out, b.items)
	return out
}

// Latest returns the newest notification, if any.
func (b *Buffer) Latest() (domain.Notification, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return domain.Notification{}, false
	}
	return b.items[len(b.items)-1], true
}
