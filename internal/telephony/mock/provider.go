package mock

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/acme/agent-ivr/internal/config"
	"github.com/acme/agent-ivr/internal/domain"
	"github.com/acme/agent-ivr/internal/telephony"
	"github.com/acme/agent-ivr/pkg/clock"
	"github.com/acme/agent-ivr/pkg/logger"
)

// FaultFunc lets callers inject a failure into an operation. A non-nil
// return is converted into an unsuccessful CallResult.
type FaultFunc func(op string) error

// Provider simulates the call service with fixed latencies and canned
// responses. It keeps no per-call state.
type Provider struct {
	startDelay  time.Duration
	endDelay    time.Duration
	statusDelay time.Duration
	quality     string

	clock  clock.Clock
	logger *logger.Logger
	fault  FaultFunc

	mu     sync.Mutex
	rng    *rand.Rand
	lastID int64
}

// Option customises a Provider.
type Option func(*Provider)

// WithClock replaces the real clock.
func WithClock(c clock.Clock) Option {
	return func(p *Provider) { p.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// WithFault installs a fault hook.
func WithFault(f FaultFunc) Option {
	return func(p *Provider) { p.fault = f }
}

// WithSeed makes GetStatus durations reproducible.
func WithSeed(seed int64) Option {
	return func(p *Provider) { p.rng = rand.New(rand.NewSource(seed)) }
}

// NewProvider constructs a mock provider from the call configuration.
func NewProvider(cfg config.CallConfig, opts ...Option) *Provider {
	p := &Provider{
		startDelay:  cfg.StartDelay,
		endDelay:    cfg.EndDelay,
		statusDelay: cfg.StatusDelay,
		quality:     cfg.Quality,
		clock:       clock.Real(),
		logger:      logger.NewNop(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if p.quality == "" {
		p.quality = "excellent"
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// StartCall simulates dialing countryCode+phoneNumber.
func (p *Provider) StartCall(ctx context.Context, phoneNumber, countryCode string) (domain.CallResult, error) {
	p.logger.Info("mock provider: starting call", zap.String("number", domain.FullNumber(countryCode, phoneNumber)))

	if err := p.wait(ctx, p.startDelay); err != nil {
		return domain.CallResult{}, err
	}
	if err := p.injected(telephony.OpStartCall); err != nil {
		return domain.CallResult{Success: false, Message: telephony.MessageStartFailed}, nil
	}

	now := p.clock.Now().UTC()
	callID := p.nextCallID(now)
	return domain.CallResult{
		Success: true,
		CallID:  callID,
		Message: "Call initiated successfully",
		Data: map[string]any{
			"phone_number": phoneNumber,
			"country_code": countryCode,
			"start_time":   now.Format(time.RFC3339Nano),
			"status":       "connecting",
		},
	}, nil
}

// EndCall simulates hanging up callID.
func (p *Provider) EndCall(ctx context.Context, callID string) (domain.CallResult, error) {
	p.logger.Info("mock provider: ending call", zap.String("call_id", callID))

	if err := p.wait(ctx, p.endDelay); err != nil {
		return domain.CallResult{}, err
	}
	if err := p.injected(telephony.OpEndCall); err != nil {
		return domain.CallResult{Success: false, Message: telephony.MessageEndFailed}, nil
	}

	return domain.CallResult{
		Success: true,
		Message: "Call ended successfully",
		Data: map[string]any{
			"call_id":  callID,
			"end_time": p.clock.Now().UTC().Format(time.RFC3339Nano),
			"status":   string(domain.CallStatusEnded),
		},
	}, nil
}

// GetStatus returns a randomised duration and a fixed quality label.
// The duration is not related to any real call timing.
func (p *Provider) GetStatus(ctx context.Context, callID string) (domain.CallResult, error) {
	p.logger.Debug("mock provider: getting call status", zap.String("call_id", callID))

	if err := p.wait(ctx, p.statusDelay); err != nil {
		return domain.CallResult{}, err
	}
	if err := p.injected(telephony.OpGetStatus); err != nil {
		return domain.CallResult{Success: false, Message: telephony.MessageStatusFailed}, nil
	}

	p.mu.Lock()
	seconds := p.rng.Intn(300)
	p.mu.Unlock()

	info := domain.CallStatusInfo{
		CallID:   callID,
		Status:   domain.CallStatusConnected,
		Duration: time.Duration(seconds) * time.Second,
		Quality:  p.quality,
	}
	return domain.CallResult{
		Success: true,
		CallID:  callID,
		Message: "Call status retrieved",
		Data:    info.Map(),
	}, nil
}

func (p *Provider) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clock.After(d):
		return nil
	}
}

func (p *Provider) injected(op string) error {
	if p.fault == nil {
		return nil
	}
	if err := p.fault(op); err != nil {
		p.logger.Error("mock provider: operation failed", zap.String("op", op), zap.Error(err))
		return err
	}
	return nil
}

// nextCallID derives the id from the clock, bumping the millisecond
// component when two calls land on the same instant.
func (p *Provider) nextCallID(now time.Time) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ms := now.UnixMilli()
	if ms <= p.lastID {
		ms = p.lastID + 1
	}
	p.lastID = ms
	return fmt.Sprintf("call_%d", ms)
}
