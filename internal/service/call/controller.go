package call

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/acme/agent-ivr/internal/domain"
	"github.com/acme/agent-ivr/internal/notify"
	"github.com/acme/agent-ivr/internal/service/inflight"
	"github.com/acme/agent-ivr/internal/telephony"
	"github.com/acme/agent-ivr/pkg/clock"
	apperrors "github.com/acme/agent-ivr/pkg/errors"
	"github.com/acme/agent-ivr/pkg/logger"
)

// User-facing notification texts.
const (
	MessageInvalidNumber = "Please enter a valid phone number"
	MessageConnected     = "Call connected successfully!"
	MessageEnded         = "Call ended successfully"
	MessageStartFailed   = "Failed to start call"
	MessageEndFailed     = "Failed to end call"
	MessageNetworkError  = "Network error. Please try again."
)

const defaultResetDelay = 2 * time.Second

// Options configures a Controller. Zero values fall back to defaults.
type Options struct {
	SessionID          string
	Provider           telephony.Provider
	Clock              clock.Clock
	Notifier           notify.Notifier
	Guard              inflight.Guard
	Logger             *logger.Logger
	ResetDelay         time.Duration
	DefaultCountryCode string
}

// Controller owns the call state of one session and mediates between the
// caller and the call service. All methods are safe for concurrent use;
// only one of StartCall/EndCall runs against the service at a time.
type Controller struct {
	sessionID      string
	provider       telephony.Provider
	clock          clock.Clock
	notifier       notify.Notifier
	guard          inflight.Guard
	logger         *logger.Logger
	tracer         trace.Tracer
	resetDelay     time.Duration
	defaultCountry string

	mu         sync.Mutex
	state      domain.CallState
	lastResult domain.CallResult
	lastUsed   time.Time
	resetTimer *clock.Timer
	// generation changes whenever a pending operation or timer must be
	// invalidated: a start begins, an end succeeds, or Reset runs.
	generation uint64
}

// NewController builds a controller in the idle state.
func NewController(opts Options) *Controller {
	c := &Controller{
		sessionID:      opts.SessionID,
		provider:       opts.Provider,
		clock:          opts.Clock,
		notifier:       opts.Notifier,
		guard:          opts.Guard,
		logger:         opts.Logger,
		resetDelay:     opts.ResetDelay,
		defaultCountry: opts.DefaultCountryCode,
		tracer:         otel.Tracer("ivr.controller"),
	}
	if c.clock == nil {
		c.clock = clock.Real()
	}
	if c.notifier == nil {
		c.notifier = notify.Multi{}
	}
	if c.guard == nil {
		c.guard = inflight.NewLocal()
	}
	if c.logger == nil {
		c.logger = logger.NewNop()
	}
	c.logger = c.logger.Session(c.sessionID)
	if c.resetDelay <= 0 {
		c.resetDelay = defaultResetDelay
	}
	if c.defaultCountry == "" {
		c.defaultCountry = domain.DefaultCountryCode
	}

	now := c.clock.Now()
	c.state = domain.NewCallState(c.defaultCountry, now)
	c.lastUsed = now
	return c
}

// SessionID returns the owning session id.
func (c *Controller) SessionID() string { return c.sessionID }

// State returns a copy of the current call state.
func (c *Controller) State() domain.CallState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastResult returns the most recent call service result.
func (c *Controller) LastResult() domain.CallResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResult
}

// LastActivity returns when the controller was last used.
func (c *Controller) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}

// InFlight reports whether a start or end is pending.
func (c *Controller) InFlight() bool {
	held, err := c.guard.Held(context.Background())
	if err != nil {
		c.logger.Warn("controller: read in-flight flag", zap.Error(err))
		return false
	}
	return held
}

// Duration is the time spent connected, zero in any other status.
func (c *Controller) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status != domain.CallStatusConnected || c.state.ConnectedAt == nil {
		return 0
	}
	return c.clock.Now().Sub(*c.state.ConnectedAt)
}

// StartCall places a call to countryCode+phoneNumber and blocks until the
// service answers. Service and transport failures are reported through
// the notifier and return nil; the returned error is reserved for
// rejected invocations (validation, in-flight, conflicting state).
func (c *Controller) StartCall(ctx context.Context, phoneNumber, countryCode string) error {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		c.notify(ctx, domain.NotificationError, "Phone Number Required", MessageInvalidNumber, "")
		return fmt.Errorf("%w: phone number is required", apperrors.ErrValidation)
	}
	if countryCode == "" {
		countryCode = c.defaultCountry
	}

	if err := c.acquire(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	switch c.state.Status {
	case domain.CallStatusConnected, domain.CallStatusCalling:
		c.mu.Unlock()
		c.release()
		return fmt.Errorf("%w: a call is already active", apperrors.ErrConflict)
	case domain.CallStatusEnded:
		// Starting again before the auto-reset fired passes through idle.
		c.transitionLocked(domain.CallStatusIdle)
	}
	c.stopResetTimerLocked()
	c.generation++
	gen := c.generation
	c.transitionLocked(domain.CallStatusCalling)
	c.state.PhoneNumber = phoneNumber
	c.state.CountryCode = countryCode
	c.state.CallID = ""
	c.state.ConnectedAt = nil
	c.touchLocked()
	c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "ivr.call.start", trace.WithAttributes(
		attribute.String("session.id", c.sessionID),
		attribute.String("call.country_code", countryCode),
	))
	defer span.End()

	result, err := c.provider.StartCall(ctx, phoneNumber, countryCode)

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		c.logger.Warn("controller: discarding start result after reset", zap.String("call_id", result.CallID))
		return nil
	}

	switch {
	case err != nil:
		c.transitionLocked(domain.CallStatusIdle)
		c.touchLocked()
		c.mu.Unlock()
		c.release()
		span.RecordError(err)
		span.SetStatus(codes.Error, "start call transport error")
		c.logger.Error("controller: start call", zap.Error(err))
		c.notify(ctx, domain.NotificationError, "Call Failed", MessageNetworkError, "")
	case !result.Success:
		c.lastResult = result
		c.transitionLocked(domain.CallStatusIdle)
		c.touchLocked()
		c.mu.Unlock()
		c.release()
		span.SetStatus(codes.Error, result.Message)
		c.notify(ctx, domain.NotificationError, "Call Failed", fallback(result.Message, MessageStartFailed), "")
	default:
		now := c.clock.Now()
		c.lastResult = result
		c.transitionLocked(domain.CallStatusConnected)
		c.state.CallID = result.CallID
		c.state.ConnectedAt = &now
		c.touchLocked()
		c.mu.Unlock()
		c.release()
		span.SetAttributes(attribute.String("call.id", result.CallID))
		c.notify(ctx, domain.NotificationSuccess, "Call Connected", MessageConnected, result.CallID)
	}
	return nil
}

// EndCall hangs up the active call. It is a no-op when there is none. On
// success the state becomes ended and returns to idle after the reset
// delay; on failure the call stays connected.
func (c *Controller) EndCall(ctx context.Context) error {
	c.mu.Lock()
	callID := c.state.CallID
	c.mu.Unlock()
	if callID == "" {
		return nil
	}

	if err := c.acquire(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state.CallID != callID {
		// Reset between the read above and acquiring the guard.
		c.mu.Unlock()
		c.release()
		return nil
	}
	gen := c.generation
	c.touchLocked()
	c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "ivr.call.end", trace.WithAttributes(
		attribute.String("session.id", c.sessionID),
		attribute.String("call.id", callID),
	))
	defer span.End()

	result, err := c.provider.EndCall(ctx, callID)

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		c.logger.Warn("controller: discarding end result after reset", zap.String("call_id", callID))
		return nil
	}

	switch {
	case err != nil:
		c.touchLocked()
		c.mu.Unlock()
		c.release()
		span.RecordError(err)
		span.SetStatus(codes.Error, "end call transport error")
		c.logger.Error("controller: end call", zap.Error(err), zap.String("call_id", callID))
		c.notify(ctx, domain.NotificationError, "Error", MessageNetworkError, callID)
	case !result.Success:
		c.lastResult = result
		c.touchLocked()
		c.mu.Unlock()
		c.release()
		span.SetStatus(codes.Error, result.Message)
		c.notify(ctx, domain.NotificationError, "Error", fallback(result.Message, MessageEndFailed), callID)
	default:
		c.lastResult = result
		c.transitionLocked(domain.CallStatusEnded)
		c.state.CallID = ""
		c.state.ConnectedAt = nil
		c.generation++
		c.scheduleResetLocked(c.generation)
		c.touchLocked()
		c.mu.Unlock()
		c.release()
		c.notify(ctx, domain.NotificationSuccess, "Call Ended", MessageEnded, callID)
	}
	return nil
}

// Reset forces the idle state, forgets the call and clears the in-flight
// flag. A start or end still waiting on the service is discarded when it
// returns.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.generation++
	c.stopResetTimerLocked()
	now := c.clock.Now()
	c.state = domain.NewCallState(c.defaultCountry, now)
	c.lastResult = domain.CallResult{}
	c.lastUsed = now
	c.mu.Unlock()

	c.release()
}

// Close stops pending timers. The controller must not be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	c.generation++
	c.stopResetTimerLocked()
	c.mu.Unlock()
	c.release()
}

// Status asks the call service about the active call. The reported
// duration comes from the service and is independent of Duration.
func (c *Controller) Status(ctx context.Context) (domain.CallResult, error) {
	c.mu.Lock()
	callID := c.state.CallID
	c.mu.Unlock()
	if callID == "" {
		return domain.CallResult{}, fmt.Errorf("%w: no active call", apperrors.ErrNotFound)
	}

	result, err := c.provider.GetStatus(ctx, callID)
	if err != nil {
		return domain.CallResult{}, fmt.Errorf("%w: get status: %v", apperrors.ErrUnavailable, err)
	}
	return result, nil
}

func (c *Controller) acquire(ctx context.Context) error {
	ok, err := c.guard.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err)
	}
	if !ok {
		return apperrors.ErrInFlight
	}
	return nil
}

func (c *Controller) release() {
	if err := c.guard.Release(context.Background()); err != nil {
		c.logger.Warn("controller: release in-flight flag", zap.Error(err))
	}
}

func (c *Controller) scheduleResetLocked(gen uint64) {
	c.resetTimer = c.clock.AfterFunc(c.resetDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation != gen || c.state.Status != domain.CallStatusEnded {
			return
		}
		c.transitionLocked(domain.CallStatusIdle)
		c.state.UpdatedAt = c.clock.Now()
		c.resetTimer = nil
	})
}

func (c *Controller) stopResetTimerLocked() {
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
}

// transitionLocked moves to next. Edges outside the lifecycle are logged
// and refused; Reset is the only way to force idle.
func (c *Controller) transitionLocked(next domain.CallStatus) bool {
	if !c.state.Status.CanTransition(next) {
		c.logger.Error("controller: illegal transition",
			zap.String("from", string(c.state.Status)),
			zap.String("to", string(next)),
		)
		return false
	}
	c.state.Status = next
	return true
}

func (c *Controller) touchLocked() {
	now := c.clock.Now()
	c.state.UpdatedAt = now
	c.lastUsed = now
}

func (c *Controller) notify(ctx context.Context, level domain.NotificationLevel, title, message, callID string) {
	state := c.State()
	c.notifier.Notify(context.WithoutCancel(ctx), domain.Notification{
		Level:     level,
		Title:     title,
		Message:   message,
		SessionID: c.sessionID,
		CallID:    callID,
		Status:    state.Status,
		At:        c.clock.Now(),
	})
}

func fallback(message, def string) string {
	if message == "" {
		return def
	}
	return message
}
