// Package inflight implements the per-session in-flight flag that keeps
// start and end from overlapping.
package inflight

import (
	"context"
	"sync/atomic"
)

// Guard is a non-blocking mutual exclusion flag.
type Guard interface {
	// Acquire sets the flag and reports whether it was previously clear.
	Acquire(ctx context.Context) (bool, error)
	// Release clears the flag.
	Release(ctx context.Context) error
	// Held reports whether the flag is currently set.
	Held(ctx context.Context) (bool, error)
}

// Factory returns the guard for a session.
type Factory func(sessionID string) Guard

// Local is an in-process guard.
type Local struct {
	held atomic.Bool
}

// NewLocal returns a cleared local guard.
func NewLocal() *Local { return &Local{} }

// LocalFactory hands every session its own Local guard.
func LocalFactory() Factory {
	return func(string) Guard { return NewLocal() }
}

func (l *Local) Acquire(context.Context) (bool, error) {
	return l.held.CompareAndSwap(false, true), nil
}

func (l *Local) Release(context.Context) error {
	l.held.Store(false)
	return nil
}

func (l *Local) Held(context.Context) (bool, error) {
	return l.held.Load(), nil
}
