package queue

import (
	"time"

	"github.com/acme/agent-ivr/internal/domain"
)

// CallEvent is the wire form of a controller notification. Events are
// keyed by session id.
type CallEvent struct {
	SessionID  string    `json:"session_id"`
	CallID     string    `json:"call_id,omitempty"`
	Status     string    `json:"status"`
	Level      string    `json:"level"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventFromNotification converts a notification into its wire form.
func EventFromNotification(n domain.Notification) CallEvent {
	return CallEvent{
		SessionID:  n.SessionID,
		CallID:     n.CallID,
		Status:     string(n.Status),
		Level:      string(n.Level),
		Title:      n.Title,
		Message:    n.Message,
		OccurredAt: n.At.UTC(),
	}
}
