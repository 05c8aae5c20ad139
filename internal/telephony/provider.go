package telephony

import (
	"context"

	"github.com/acme/agent-ivr/internal/domain"
)

// Provider is the call service boundary. Implementations report
// carrier-side failures as CallResult{Success: false}; a returned error
// means the request itself did not complete (cancelled, unreachable,
// undecodable).
type Provider interface {
	StartCall(ctx context.Context, phoneNumber, countryCode string) (domain.CallResult, error)
	EndCall(ctx context.Context, callID string) (domain.CallResult, error)
	GetStatus(ctx context.Context, callID string) (domain.CallResult, error)
}

// Operation names passed to fault hooks and used in logs.
const (
	OpStartCall = "start_call"
	OpEndCall   = "end_call"
	OpGetStatus = "get_status"
)

// Failure messages returned when an operation cannot be completed.
const (
	MessageStartFailed  = "Failed to initiate call"
	MessageEndFailed    = "Failed to end call"
	MessageStatusFailed = "Failed to get call status"
)
