package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acme/agent-ivr/internal/config"
	"github.com/acme/agent-ivr/internal/domain"
	"github.com/acme/agent-ivr/internal/notify"
	callsvc "github.com/acme/agent-ivr/internal/service/call"
	"github.com/acme/agent-ivr/internal/service/inflight"
	"github.com/acme/agent-ivr/internal/telephony"
	"github.com/acme/agent-ivr/pkg/clock"
	apperrors "github.com/acme/agent-ivr/pkg/errors"
	"github.com/acme/agent-ivr/pkg/logger"
)

// Session pairs a controller with the notifications it produced.
type Session struct {
	ID            string
	Controller    *callsvc.Controller
	Notifications *notify.Buffer
	CreatedAt     time.Time
}

// Registry owns the live sessions. Each session has exactly one
// controller; nothing is shared between sessions except the provider and
// the shared notifier.
type Registry struct {
	provider telephony.Provider
	guards   inflight.Factory
	sink     notify.Notifier
	clock    clock.Clock
	logger   *logger.Logger
	session  config.SessionConfig
	call     config.CallConfig

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry constructs an empty registry.
func NewRegistry(
	provider telephony.Provider,
	guards inflight.Factory,
	sink notify.Notifier,
	clk clock.Clock,
	lg *logger.Logger,
	sessionCfg config.SessionConfig,
	callCfg config.CallConfig,
) *Registry {
	if guards == nil {
		guards = inflight.LocalFactory()
	}
	if clk == nil {
		clk = clock.Real()
	}
	if lg == nil {
		lg = logger.NewNop()
	}
	return &Registry{
		provider: provider,
		guards:   guards,
		sink:     sink,
		clock:    clk,
		logger:   lg,
		session:  sessionCfg,
		call:     callCfg,
		sessions: make(map[string]*Session),
	}
}

// Create opens a new idle session.
func (r *Registry) Create() *Session {
	id := uuid.NewString()
	buffer := notify.NewBuffer(r.session.NotificationBuffer)

	var notifier notify.Notifier = buffer
	if r.sink != nil {
		notifier = notify.Multi{buffer, r.sink}
	}

	s := &Session{
		ID:            id,
		Notifications: buffer,
		CreatedAt:     r.clock.Now(),
		Controller: callsvc.NewController(callsvc.Options{
			SessionID:          id,
			Provider:           r.provider,
			Clock:              r.clock,
			Notifier:           notifier,
			Guard:              r.guards(id),
			Logger:             r.logger,
			ResetDelay:         r.call.ResetDelay,
			DefaultCountryCode: r.call.DefaultCountryCode,
		}),
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	r.logger.Debug("session registry: session created", zap.String("session_id", id))
	return s
}

// Get returns the session with id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: session %s", apperrors.ErrNotFound, id)
	}
	return s, nil
}

// Delete closes and removes a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: session %s", apperrors.ErrNotFound, id)
	}
	s.Controller.Close()
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than the configured TTL. Sessions
// with an operation in flight are kept. A connected call on an evicted
// session is abandoned without hanging up.
func (r *Registry) Sweep() int {
	ttl := r.session.IdleTTL
	if ttl <= 0 {
		return 0
	}
	cutoff := r.clock.Now().Add(-ttl)

	// The in-flight check may hit Redis, so it runs on a snapshot.
	r.mu.RLock()
	candidates := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		candidates = append(candidates, s)
	}
	r.mu.RUnlock()

	var evicted []*Session
	for _, s := range candidates {
		if s.Controller.LastActivity().After(cutoff) || s.Controller.InFlight() {
			continue
		}
		r.mu.Lock()
		current, ok := r.sessions[s.ID]
		if ok && current == s {
			delete(r.sessions, s.ID)
		}
		r.mu.Unlock()
		if !ok || current != s {
			continue
		}
		evicted = append(evicted, s)
	}

	for _, s := range evicted {
		if state := s.Controller.State(); state.Status == domain.CallStatusConnected {
			r.logger.Warn("session registry: evicting session with connected call",
				zap.String("session_id", s.ID),
				zap.String("call_id", state.CallID),
			)
		}
		s.Controller.Close()
	}
	if len(evicted) > 0 {
		r.logger.Info("session registry: evicted idle sessions", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

// Run sweeps on the configured interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) error {
	interval := r.session.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Controller.Close()
	}
}
