package domain

import "time"

// NotificationLevel distinguishes success toasts from errors.
type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationError   NotificationLevel = "error"
)

// Notification is a transient user-facing message.
type Notification struct {
	Level     NotificationLevel `json:"level"`
	Title     string            `json:"title,omitempty"`
	Message   string            `json:"message"`
	SessionID string            `json:"session_id,omitempty"`
	CallID    string            `json:"call_id,omitempty"`
	Status    CallStatus        `json:"status"`
	At        time.Time         `json:"at"`
}
