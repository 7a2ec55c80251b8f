package config

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
)

var telegramTokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateTelegramToken validates a Telegram bot token
func (v *Validator) ValidateTelegramToken(token string) error {
	if token == "" {
		return fmt.Errorf("telegram bot token cannot be empty")
	}

	// Telegram bot tokens have format: <bot_id>:<token>
	if !telegramTokenPattern.MatchString(token) {
		return fmt.Errorf("invalid Telegram bot token format")
	}

	return nil
}

// ValidatePrefix validates the command prefix. Slash is reserved for
// Telegram's native commands.
func (v *Validator) ValidatePrefix(prefix string) error {
	if prefix == "" {
		return fmt.Errorf("command prefix cannot be empty")
	}
	if prefix == "/" {
		return fmt.Errorf("command prefix %q is reserved for Telegram commands", prefix)
	}
	if strings.IndexFunc(prefix, unicode.IsSpace) >= 0 {
		return fmt.Errorf("command prefix %q must not contain whitespace", prefix)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if lo.Contains(validLevels, level) {
		return nil
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateSchedule validates a cron spec or descriptor such as "@every 30s".
func (v *Validator) ValidateSchedule(spec string) error {
	if spec == "" {
		return nil // stats job disabled
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid stats schedule %q: %w", spec, err)
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if cfg.Telegram.Enabled {
		if err := v.ValidateTelegramToken(cfg.Telegram.BotToken); err != nil {
			errors = append(errors, err)
		}
	}

	if cfg.Gateway.Enabled && cfg.Gateway.Port == 0 {
		errors = append(errors, fmt.Errorf("gateway port is required when the gateway is enabled"))
	}

	if err := v.ValidatePrefix(cfg.Commands.Prefix); err != nil {
		errors = append(errors, err)
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	if err := v.ValidateSchedule(cfg.Stats.Schedule); err != nil {
		errors = append(errors, err)
	}

	return errors
}
