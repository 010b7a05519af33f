// Package config holds the resolved extension configuration: enable
// flags, timeouts, and the ordered user action list. Resolution runs
// fresh on every pipeline invocation so edits take effect on the very
// next save.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Key is the settings subtree this extension owns, both in the settings
// file and in editor-scoped override variables.
const Key = "savefmt"

// Config is the resolved configuration. Timeouts are numeric
// milliseconds in user-facing form.
type Config struct {
	Enabled                   bool `json:"enabled" mapstructure:"enabled"`
	SortSettingsJSON          bool `json:"sortSettingsJson" mapstructure:"sortSettingsJson"`
	OrganizeImportsWithFormat bool `json:"organizeImportsWithFormat" mapstructure:"organizeImportsWithFormat"`

	FormatTimeoutMs int `json:"formatTimeout" mapstructure:"formatTimeout"`
	ActionTimeoutMs int `json:"actionTimeout" mapstructure:"actionTimeout"`
	ActionDelayMs   int `json:"actionDelay" mapstructure:"actionDelay"`

	Actions ActionList `json:"actions" mapstructure:"-"`
}

// Default returns the configuration applied when the user supplies
// nothing.
func Default() Config {
	return Config{
		Enabled:                   true,
		SortSettingsJSON:          false,
		OrganizeImportsWithFormat: false,
		FormatTimeoutMs:           3000,
		ActionTimeoutMs:           5000,
		ActionDelayMs:             100,
	}
}

// FormatTimeout bounds the final format-document invocation.
func (c Config) FormatTimeout() time.Duration {
	return time.Duration(c.FormatTimeoutMs) * time.Millisecond
}

// ActionTimeout bounds each user action unless the action overrides it.
func (c Config) ActionTimeout() time.Duration {
	return time.Duration(c.ActionTimeoutMs) * time.Millisecond
}

// ActionDelay is the settling wait after an editor-command action.
func (c Config) ActionDelay() time.Duration {
	return time.Duration(c.ActionDelayMs) * time.Millisecond
}

// FieldError describes one rejected configuration field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError aggregates every field rejection found in one pass.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.String()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Validate checks the resolved value as a whole. It is a pure function:
// it either accepts the configuration or returns a *ValidationError
// listing every offending field.
func (c Config) Validate() error {
	var fields []FieldError
	if c.FormatTimeoutMs <= 0 {
		fields = append(fields, FieldError{"formatTimeout", "must be a positive number of milliseconds"})
	}
	if c.ActionTimeoutMs <= 0 {
		fields = append(fields, FieldError{"actionTimeout", "must be a positive number of milliseconds"})
	}
	if c.ActionDelayMs < 0 {
		fields = append(fields, FieldError{"actionDelay", "must not be negative"})
	}
	for _, act := range c.Actions {
		fields = append(fields, act.validate()...)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
