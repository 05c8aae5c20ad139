package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/acme/agent-ivr/internal/domain"
)

// Config captures the full configuration surface for the application.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Call      CallConfig      `mapstructure:"call"`
	Session   SessionConfig   `mapstructure:"session"`
	Guard     GuardConfig     `mapstructure:"guard"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type HTTPConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// CallConfig holds the mock call service latencies and lifecycle timing.
type CallConfig struct {
	StartDelay         time.Duration `mapstructure:"start_delay"`
	EndDelay           time.Duration `mapstructure:"end_delay"`
	StatusDelay        time.Duration `mapstructure:"status_delay"`
	ResetDelay         time.Duration `mapstructure:"reset_delay"`
	DefaultCountryCode string        `mapstructure:"default_country_code"`
	Quality            string        `mapstructure:"quality"`
}

type SessionConfig struct {
	IdleTTL            time.Duration `mapstructure:"idle_ttl"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`
	NotificationBuffer int           `mapstructure:"notification_buffer"`
}

// GuardConfig selects where the per-session in-flight flag lives.
type GuardConfig struct {
	Backend   string        `mapstructure:"backend"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

type KafkaConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Brokers         []string      `mapstructure:"brokers"`
	ClientID        string        `mapstructure:"client_id"`
	EventTopic      string        `mapstructure:"event_topic"`
	ConsumerGroupID string        `mapstructure:"consumer_group_id"`
	CommitInterval  time.Duration `mapstructure:"commit_interval"`
}

type TelemetryConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	ServiceName     string        `mapstructure:"service_name"`
	SampleRatio     float64       `mapstructure:"sample_ratio"`
	TracingEnabled  bool          `mapstructure:"tracing_enabled"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

const (
	GuardBackendLocal = "local"
	GuardBackendRedis = "redis"
)

// Load reads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvPrefix("IVR")
	v.SetEnvKeyReplacer(NewEnvReplacer())
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file: %w", err)
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := new(Config)
	// Defaults are plain scalars; Unmarshal cannot fail on them.
	_ = v.Unmarshal(cfg)
	_ = cfg.Validate()
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "agent-ivr")
	v.SetDefault("app.env", "development")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "10s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("call.start_delay", "1s")
	v.SetDefault("call.end_delay", "500ms")
	v.SetDefault("call.status_delay", "300ms")
	v.SetDefault("call.reset_delay", "2s")
	v.SetDefault("call.default_country_code", domain.DefaultCountryCode)
	v.SetDefault("call.quality", "excellent")
	v.SetDefault("session.idle_ttl", "30m")
	v.SetDefault("session.sweep_interval", "1m")
	v.SetDefault("session.notification_buffer", 20)
	v.SetDefault("guard.backend", GuardBackendLocal)
	v.SetDefault("guard.ttl", "30s")
	v.SetDefault("guard.key_prefix", "ivr:session")
	v.SetDefault("kafka.client_id", "agent-ivr")
	v.SetDefault("kafka.event_topic", "ivr.call.events")
	v.SetDefault("kafka.consumer_group_id", "agent-ivr-eventlog")
	v.SetDefault("kafka.commit_interval", "1s")
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("telemetry.shutdown_timeout", "5s")
}

// Validate fills zero values that must never be zero and rejects
// combinations that cannot work.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port out of range: %d", c.HTTP.Port))
	}
	if c.Call.StartDelay < 0 || c.Call.EndDelay < 0 || c.Call.StatusDelay < 0 {
		errs = append(errs, errors.New("call delays must not be negative"))
	}
	if c.Call.ResetDelay <= 0 {
		c.Call.ResetDelay = 2 * time.Second
	}
	if c.Call.DefaultCountryCode == "" {
		c.Call.DefaultCountryCode = domain.DefaultCountryCode
	}
	if !domain.KnownCountryCode(c.Call.DefaultCountryCode) {
		errs = append(errs, fmt.Errorf("call.default_country_code %q is not in the country list", c.Call.DefaultCountryCode))
	}
	if c.Session.NotificationBuffer <= 0 {
		c.Session.NotificationBuffer = 20
	}

	switch c.Guard.Backend {
	case "", GuardBackendLocal:
		c.Guard.Backend = GuardBackendLocal
	case GuardBackendRedis:
		if c.Redis.Address == "" {
			errs = append(errs, errors.New("guard.backend redis requires redis.address"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown guard.backend %q", c.Guard.Backend))
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka.enabled requires kafka.brokers"))
		}
		if c.Kafka.EventTopic == "" {
			errs = append(errs, errors.New("kafka.enabled requires kafka.event_topic"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// NewEnvReplacer standardizes environment variable names.
func NewEnvReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_", "-", "_")
}
