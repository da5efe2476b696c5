package model

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the complete feedlens configuration
type Config struct {
	API       APIConfig       `yaml:"api" mapstructure:"api"`
	Flags     FlagsConfig     `yaml:"flags" mapstructure:"flags"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
	Tracking  TrackingConfig  `yaml:"tracking" mapstructure:"tracking"`
	Stats     StatsConfig     `yaml:"stats" mapstructure:"stats"`
	UI        UIConfig        `yaml:"ui" mapstructure:"ui"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// APIConfig configures the remote content API client
type APIConfig struct {
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	ViewerID          string        `yaml:"viewer_id" mapstructure:"viewer_id" validate:"required"`
	FeedLimit         int           `yaml:"feed_limit" mapstructure:"feed_limit" validate:"gte=1,lte=100"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`
	BurstSize         int           `yaml:"burst_size" mapstructure:"burst_size" validate:"gte=1"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
}

// FlagsConfig selects and configures the remote feature-flag provider
type FlagsConfig struct {
	Provider    string        `yaml:"provider" mapstructure:"provider" validate:"oneof=static posthog redis"`
	Key         string        `yaml:"key" mapstructure:"key" validate:"required"`
	StaticValue string        `yaml:"static_value" mapstructure:"static_value"`
	InitTimeout time.Duration `yaml:"init_timeout" mapstructure:"init_timeout" validate:"gt=0"`

	PostHogHost   string `yaml:"posthog_host" mapstructure:"posthog_host" validate:"required_if=Provider posthog"`
	PostHogAPIKey string `yaml:"posthog_api_key" mapstructure:"posthog_api_key" validate:"required_if=Provider posthog"`
	DistinctID    string `yaml:"distinct_id" mapstructure:"distinct_id"`

	RedisAddr   string `yaml:"redis_addr" mapstructure:"redis_addr" validate:"required_if=Provider redis"`
	RedisPrefix string `yaml:"redis_prefix" mapstructure:"redis_prefix"`
}

// StorageConfig selects the durable client store holding the manual override
type StorageConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend" validate:"oneof=memory file badger"`
	Path    string `yaml:"path" mapstructure:"path" validate:"required_unless=Backend memory"`
}

// TelemetryConfig configures the event sinks
type TelemetryConfig struct {
	Sinks             []string      `yaml:"sinks" mapstructure:"sinks" validate:"dive,oneof=log posthog nats metrics"`
	PostHogHost       string        `yaml:"posthog_host" mapstructure:"posthog_host"`
	PostHogAPIKey     string        `yaml:"posthog_api_key" mapstructure:"posthog_api_key"`
	NATSURL           string        `yaml:"nats_url" mapstructure:"nats_url"`
	NATSSubject       string        `yaml:"nats_subject" mapstructure:"nats_subject"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`
	BurstSize         int           `yaml:"burst_size" mapstructure:"burst_size" validate:"gte=1"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	BreakerFailures   uint32        `yaml:"breaker_failures" mapstructure:"breaker_failures" validate:"gte=1"`
	BreakerCooldown   time.Duration `yaml:"breaker_cooldown" mapstructure:"breaker_cooldown" validate:"gt=0"`
}

// TrackingConfig configures passive measurement
type TrackingConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	ScrollInterval time.Duration `yaml:"scroll_interval" mapstructure:"scroll_interval" validate:"gt=0"`
}

// StatsConfig configures the audience statistics source
type StatsConfig struct {
	Enabled     bool `yaml:"enabled" mapstructure:"enabled"`
	WarmWorkers int  `yaml:"warm_workers" mapstructure:"warm_workers" validate:"gte=1"`
}

// UIConfig holds render flags resolved once at startup
type UIConfig struct {
	ShowDebugControls bool `yaml:"show_debug_controls" mapstructure:"show_debug_controls"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr" validate:"required"`
}

// LogConfig configures zerolog output
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:           "http://localhost:8000",
			Timeout:           10 * time.Second,
			ViewerID:          "current-user",
			FeedLimit:         20,
			RequestsPerSecond: 10,
			BurstSize:         5,
			UserAgent:         "feedlens/0.1",
		},
		Flags: FlagsConfig{
			Provider:    "static",
			Key:         FeatureFlagKey,
			InitTimeout: 2 * time.Second,
			RedisPrefix: "feature_flags:",
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
		Telemetry: TelemetryConfig{
			Sinks:             []string{"log", "metrics"},
			NATSSubject:       "feedlens.events",
			RequestsPerSecond: 20,
			BurstSize:         10,
			Timeout:           5 * time.Second,
			BreakerFailures:   5,
			BreakerCooldown:   30 * time.Second,
		},
		Tracking: TrackingConfig{
			Enabled:        true,
			ScrollInterval: 5 * time.Second,
		},
		Stats: StatsConfig{
			Enabled:     true,
			WarmWorkers: 4,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

var configValidator = validator.New()

// Validate checks the configuration against its struct constraints
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
