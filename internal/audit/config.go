package audit

import (
	"fmt"
	"os"
)

// Config selects the ledger backend.
type Config struct {
	Backend string `toml:"backend"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Backend string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if c.Backend == "" {
		c.Backend = BackendPostgres
	}
	if env != nil && env.Backend != "" {
		if v := os.Getenv(env.Backend); v != "" {
			c.Backend = v
		}
	}

	switch c.Backend {
	case BackendPostgres, BackendMongo, BackendMemory:
		return nil
	default:
		return fmt.Errorf("unsupported audit backend %q", c.Backend)
	}
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
}
