package app

import (
	"context"
	"testing"
	"time"

	"github.com/acme/agent-ivr/internal/config"
	"github.com/acme/agent-ivr/internal/domain"
	"github.com/acme/agent-ivr/internal/telephony/mock"
	"github.com/acme/agent-ivr/pkg/clock"
	"github.com/acme/agent-ivr/pkg/logger"
)

func TestNewWithDefaultsUsesLocalInfrastructure(t *testing.T) {
	cfg := config.Default()
	c, err := New(context.Background(), cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close(context.Background())

	if c.Redis != nil || c.Kafka != nil {
		t.Fatalf("expected no redis or kafka with default config")
	}
	if _, ok := c.Provider().(*mock.Provider); !ok {
		t.Fatalf("expected mock provider, got %T", c.Provider())
	}
	if c.Notifier() == nil || c.Guards() == nil {
		t.Fatalf("expected notifier and guard factory")
	}
	if err := c.EnsureTopics(context.Background()); err != nil {
		t.Fatalf("ensure topics without kafka: %v", err)
	}
}

func TestSessionsShareInjectedClockAndProvider(t *testing.T) {
	cfg := config.Default()
	fc := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	provider := mock.NewProvider(cfg.Call, mock.WithClock(fc))

	c, err := New(context.Background(), cfg, logger.NewNop(), WithClock(fc), WithProvider(provider))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Close(context.Background())

	if c.Provider() != provider {
		t.Fatalf("expected injected provider")
	}
	s := c.Sessions().Create()
	if s.Controller.State().Status != domain.CallStatusIdle {
		t.Fatalf("expected idle session")
	}
	if !s.CreatedAt.Equal(fc.Now()) {
		t.Fatalf("expected session stamped with fake clock")
	}
}
