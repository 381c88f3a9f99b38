package approvals

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/countersign/internal/reminders"
	"github.com/JaimeStill/countersign/pkg/formatting"
)

// Config holds the tunables of the approval workflow.
type Config struct {
	ReminderWindow      string `toml:"reminder_window"`
	MaxReasonLength     int    `toml:"max_reason_length"`
	ConflictRetries     int    `toml:"conflict_retries"`
	CollaboratorTimeout string `toml:"collaborator_timeout"`
	MaxSignatureSize    string `toml:"max_signature_size"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	ReminderWindow      string
	MaxReasonLength     string
	ConflictRetries     string
	CollaboratorTimeout string
	MaxSignatureSize    string
}

// ReminderWindowDuration returns ReminderWindow as a time.Duration.
func (c *Config) ReminderWindowDuration() time.Duration {
	d, _ := time.ParseDuration(c.ReminderWindow)
	return d
}

// CollaboratorTimeoutDuration returns CollaboratorTimeout as a time.Duration.
func (c *Config) CollaboratorTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.CollaboratorTimeout)
	return d
}

// MaxSignatureSizeBytes returns MaxSignatureSize in bytes.
func (c *Config) MaxSignatureSizeBytes() int64 {
	n, _ := formatting.ParseBytes(c.MaxSignatureSize)
	return n
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.ReminderWindow != "" {
		c.ReminderWindow = overlay.ReminderWindow
	}
	if overlay.MaxReasonLength != 0 {
		c.MaxReasonLength = overlay.MaxReasonLength
	}
	if overlay.ConflictRetries != 0 {
		c.ConflictRetries = overlay.ConflictRetries
	}
	if overlay.CollaboratorTimeout != "" {
		c.CollaboratorTimeout = overlay.CollaboratorTimeout
	}
	if overlay.MaxSignatureSize != "" {
		c.MaxSignatureSize = overlay.MaxSignatureSize
	}
}

func (c *Config) loadDefaults() {
	if c.ReminderWindow == "" {
		c.ReminderWindow = reminders.DefaultWindow.String()
	}
	if c.MaxReasonLength == 0 {
		c.MaxReasonLength = 500
	}
	if c.ConflictRetries == 0 {
		c.ConflictRetries = 3
	}
	if c.CollaboratorTimeout == "" {
		c.CollaboratorTimeout = "30s"
	}
	if c.MaxSignatureSize == "" {
		c.MaxSignatureSize = "2MB"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.ReminderWindow != "" {
		if v := os.Getenv(env.ReminderWindow); v != "" {
			c.ReminderWindow = v
		}
	}
	if env.MaxReasonLength != "" {
		if v := os.Getenv(env.MaxReasonLength); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxReasonLength = n
			}
		}
	}
	if env.ConflictRetries != "" {
		if v := os.Getenv(env.ConflictRetries); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.ConflictRetries = n
			}
		}
	}
	if env.CollaboratorTimeout != "" {
		if v := os.Getenv(env.CollaboratorTimeout); v != "" {
			c.CollaboratorTimeout = v
		}
	}
	if env.MaxSignatureSize != "" {
		if v := os.Getenv(env.MaxSignatureSize); v != "" {
			c.MaxSignatureSize = v
		}
	}
}

func (c *Config) validate() error {
	if d, err := time.ParseDuration(c.ReminderWindow); err != nil || d <= 0 {
		return fmt.Errorf("invalid reminder_window: %q", c.ReminderWindow)
	}
	if c.MaxReasonLength < 1 {
		return fmt.Errorf("max_reason_length must be positive")
	}
	if c.ConflictRetries < 0 {
		return fmt.Errorf("conflict_retries must not be negative")
	}
	if _, err := time.ParseDuration(c.CollaboratorTimeout); err != nil {
		return fmt.Errorf("invalid collaborator_timeout: %w", err)
	}
	if _, err := formatting.ParseBytes(c.MaxSignatureSize); err != nil {
		return fmt.Errorf("invalid max_signature_size: %w", err)
	}
	return nil
}
