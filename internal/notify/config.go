package notify

import (
	"fmt"
	"os"
	"time"
)

// Broadcaster types.
const (
	TypeWebhook = "webhook"
	TypeLog     = "log"
	TypeNone    = "none"
)

// Config selects and configures the event broadcaster.
type Config struct {
	Type    string `toml:"type"`
	URL     string `toml:"url"`
	Token   string `toml:"token"`
	Timeout string `toml:"timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Type    string
	URL     string
	Token   string
	Timeout string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
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
	if overlay.Type != "" {
		c.Type = overlay.Type
	}
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.Token != "" {
		c.Token = overlay.Token
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

func (c *Config) loadDefaults() {
	if c.Type == "" {
		c.Type = TypeLog
	}
	if c.Timeout == "" {
		c.Timeout = "10s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Type != "" {
		if v := os.Getenv(env.Type); v != "" {
			c.Type = v
		}
	}
	if env.URL != "" {
		if v := os.Getenv(env.URL); v != "" {
			c.URL = v
		}
	}
	if env.Token != "" {
		if v := os.Getenv(env.Token); v != "" {
			c.Token = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
}

func (c *Config) validate() error {
	switch c.Type {
	case TypeWebhook:
		if c.URL == "" {
			return fmt.Errorf("url required for webhook broadcaster")
		}
	case TypeLog, TypeNone:
	default:
		return fmt.Errorf("unsupported notify type %q", c.Type)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}
