package config

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config represents the main queuebot configuration
type Config struct {
	// Telegram transport
	Telegram TelegramConfig `json:"telegram" mapstructure:"telegram"`

	// WebSocket gateway transport
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`

	// Prometheus endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Queue registry
	Queue QueueConfig `json:"queue" mapstructure:"queue"`

	// Command parsing
	Commands CommandsConfig `json:"commands" mapstructure:"commands"`

	// Periodic registry stats
	Stats StatsConfig `json:"stats" mapstructure:"stats"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Tracing
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	BotToken string `json:"bot_token" mapstructure:"bot_token" validate:"required_if=Enabled true"`
}

// GatewayConfig holds gateway server configuration
type GatewayConfig struct {
	Enabled      bool   `json:"enabled" mapstructure:"enabled"`
	Host         string `json:"host" mapstructure:"host"`
	Port         int    `json:"port" mapstructure:"port" validate:"min=0,max=65535"`
	SharedSecret string `json:"shared_secret" mapstructure:"shared_secret"`
}

// Addr returns the listen address of the gateway.
func (g GatewayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// MetricsConfig controls the /metrics endpoint on the gateway server
type MetricsConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// QueueConfig holds registry settings
type QueueConfig struct {
	MaxSize int `json:"max_size" mapstructure:"max_size" validate:"min=1,max=100"`
}

// CommandsConfig holds command parsing settings
type CommandsConfig struct {
	Prefix string `json:"prefix" mapstructure:"prefix" validate:"required,max=5"`
}

// StatsConfig holds the schedule of the registry stats job
type StatsConfig struct {
	Schedule string `json:"schedule" mapstructure:"schedule"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled     bool    `json:"enabled" mapstructure:"enabled"`
	ServiceName string  `json:"service_name" mapstructure:"service_name"`
	SampleRatio float64 `json:"sample_ratio" mapstructure:"sample_ratio" validate:"min=0,max=1"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Enabled: true,
		},
		Gateway: GatewayConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    8080,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Queue: QueueConfig{
			MaxSize: 6,
		},
		Commands: CommandsConfig{
			Prefix: "!",
		},
		Stats: StatsConfig{
			Schedule: "@every 30s",
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Redaction: true,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "queuebot",
			SampleRatio: 1,
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if errs := NewValidator().ValidateConfig(c); len(errs) > 0 {
		return errs[0]
	}

	return nil
}
