package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/acme/agent-ivr/internal/config"
	"github.com/acme/agent-ivr/internal/infra/redis"
	"github.com/acme/agent-ivr/internal/notify"
	"github.com/acme/agent-ivr/internal/queue"
	"github.com/acme/agent-ivr/internal/service/inflight"
	"github.com/acme/agent-ivr/internal/service/session"
	"github.com/acme/agent-ivr/internal/telephony"
	telephonyMock "github.com/acme/agent-ivr/internal/telephony/mock"
	"github.com/acme/agent-ivr/pkg/clock"
	"github.com/acme/agent-ivr/pkg/logger"
)

// Container wires together shared infrastructure dependencies.
type Container struct {
	Config *config.Config
	Logger *logger.Logger
	Clock  clock.Clock

	// Redis is set only when the in-flight guard lives in Redis.
	Redis *redis.Client
	// Kafka is set only when event publishing is enabled.
	Kafka *queue.Kafka

	provider telephony.Provider

	// lazily initialised components
	components struct {
		once      sync.Once
		publisher *queue.EventPublisher
		notifier  notify.Notifier
		guards    inflight.Factory
		sessions  *session.Registry
	}
}

// Option customises a container before components are built.
type Option func(*Container)

// WithProvider replaces the in-process mock call service.
func WithProvider(p telephony.Provider) Option {
	return func(c *Container) { c.provider = p }
}

// WithClock replaces the wall clock.
func WithClock(clk clock.Clock) Option {
	return func(c *Container) { c.Clock = clk }
}

// Build constructs a container for the given configuration path.
func Build(ctx context.Context, configPath string, opts ...Option) (*Container, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	lg, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, err
	}

	return New(ctx, cfg, lg, opts...)
}

// New constructs a container from an already loaded configuration and
// connects the infrastructure the configuration asks for.
func New(ctx context.Context, cfg *config.Config, lg *logger.Logger, opts ...Option) (*Container, error) {
	container := &Container{
		Config: cfg,
		Logger: lg,
		Clock:  clock.Real(),
	}
	for _, opt := range opts {
		opt(container)
	}

	if cfg.Guard.Backend == config.GuardBackendRedis {
		redisClient, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("bootstrap redis: %w", err)
		}
		container.Redis = redisClient
	}

	if cfg.Kafka.Enabled {
		kafka, err := queue.NewKafka(cfg.Kafka)
		if err != nil {
			_ = container.Close(ctx)
			return nil, fmt.Errorf("bootstrap kafka: %w", err)
		}
		container.Kafka = kafka
	}

	return container, nil
}

func (c *Container) initComponents() {
	c.components.once.Do(func() {
		if c.provider == nil {
			c.provider = telephonyMock.NewProvider(c.Config.Call,
				telephonyMock.WithClock(c.Clock),
				telephonyMock.WithLogger(c.Logger),
			)
		}

		notifiers := notify.Multi{notify.NewLog(c.Logger)}
		if c.Kafka != nil {
			c.components.publisher = queue.NewEventPublisher(c.Kafka, c.Config.Kafka.EventTopic, c.Logger)
			notifiers = append(notifiers, c.components.publisher)
		}
		c.components.notifier = notifiers

		if c.Redis != nil {
			c.components.guards = inflight.RedisFactory(c.Redis.Inner(), c.Config.Guard.KeyPrefix, c.Config.Guard.TTL)
		} else {
			c.components.guards = inflight.LocalFactory()
		}

		c.components.sessions = session.NewRegistry(
			c.provider,
			c.components.guards,
			c.components.notifier,
			c.Clock,
			c.Logger,
			c.Config.Session,
			c.Config.Call,
		)
	})
}

// Provider exposes the call service.
func (c *Container) Provider() telephony.Provider {
	c.initComponents()
	return c.provider
}

// Notifier exposes the shared notifier: the log plus Kafka when enabled.
func (c *Container) Notifier() notify.Notifier {
	c.initComponents()
	return c.components.notifier
}

// Guards exposes the in-flight guard factory.
func (c *Container) Guards() inflight.Factory {
	c.initComponents()
	return c.components.guards
}

// Sessions exposes the session registry.
func (c *Container) Sessions() *session.Registry {
	c.initComponents()
	return c.components.sessions
}

// Close releases all held resources.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.components.sessions != nil {
		c.components.sessions.Close()
	}
	if c.components.publisher != nil {
		if err := c.components.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event publisher close: %w", err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if c.Logger != nil {
		c.Logger.Sync()
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}

// EnsureTopics ensures the event topic exists. It is a no-op when Kafka
// is disabled.
func (c *Container) EnsureTopics(ctx context.Context) error {
	if c.Kafka == nil {
		return nil
	}
	return c.Kafka.EnsureTopics(ctx, []string{c.Config.Kafka.EventTopic}, 12, 1)
}
