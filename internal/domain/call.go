package domain

import "time"

// CallStatus enumerates lifecycle states of a simulated call.
type CallStatus string

const (
	CallStatusIdle      CallStatus = "idle"
	CallStatusCalling   CallStatus = "calling"
	CallStatusConnected CallStatus = "connected"
	CallStatusEnded     CallStatus = "ended"
)

// Valid reports whether s is a known status.
func (s CallStatus) Valid() bool {
	switch s {
	case CallStatusIdle, CallStatusCalling, CallStatusConnected, CallStatusEnded:
		return true
	}
	return false
}

// CanTransition reports whether the lifecycle allows moving from s to next.
// Reset to idle is always allowed; see Controller.Reset.
func (s CallStatus) CanTransition(next CallStatus) bool {
	switch s {
	case CallStatusIdle:
		return next == CallStatusCalling
	case CallStatusCalling:
		return next == CallStatusConnected || next == CallStatusIdle
	case CallStatusConnected:
		return next == CallStatusEnded
	case CallStatusEnded:
		return next == CallStatusIdle
	}
	return false
}

// Active reports whether a call exists on the carrier side.
func (s CallStatus) Active() bool {
	return s == CallStatusCalling || s == CallStatusConnected
}

// CallState is the per-session view of the current call.
type CallState struct {
	PhoneNumber string     `json:"phone_number"`
	CountryCode string     `json:"country_code"`
	Status      CallStatus `json:"status"`
	CallID      string     `json:"call_id,omitempty"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewCallState returns an idle state for a fresh session.
func NewCallState(defaultCountry string, now time.Time) CallState {
	return CallState{
		CountryCode: defaultCountry,
		Status:      CallStatusIdle,
		UpdatedAt:   now,
	}
}

// FullNumber returns the dialable number, e.g. "+919876543210".
func (s CallState) FullNumber() string {
	return FullNumber(s.CountryCode, s.PhoneNumber)
}

// CallResult is returned by the call service for every operation.
// Failures are reported with Success=false rather than an error.
type CallResult struct {
	Success bool           `json:"success"`
	CallID  string         `json:"call_id,omitempty"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// CallStatusInfo is the payload of a status lookup.
type CallStatusInfo struct {
	CallID   string        `json:"call_id"`
	Status   CallStatus    `json:"status"`
	Duration time.Duration `json:"duration"`
	Quality  string        `json:"quality"`
}

// Map renders the info as a CallResult data payload.
func (i CallStatusInfo) Map() map[string]any {
	return map[string]any{
		"call_id":  i.CallID,
		"status":   string(i.Status),
		"duration": int64(i.Duration / time.Second),
		"quality":  i.Quality,
	}
}
