package auth

import (
	"fmt"
	"os"
)

// Verification modes.
const (
	ModeHeader = "header"
	ModeHMAC   = "hmac"
	ModeOIDC   = "oidc"
)

// Config selects how request identity is established.
// ModeHeader trusts ActorHeader and is intended for local development behind a gateway.
type Config struct {
	Mode        string `toml:"mode"`
	Secret      string `toml:"secret"`
	Issuer      string `toml:"issuer"`
	Audience    string `toml:"audience"`
	JWKSURL     string `toml:"jwks_url"`
	ActorHeader string `toml:"actor_header"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Mode        string
	Secret      string
	Issuer      string
	Audience    string
	JWKSURL     string
	ActorHeader string
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
	if overlay.Mode != "" {
		c.Mode = overlay.Mode
	}
	if overlay.Secret != "" {
		c.Secret = overlay.Secret
	}
	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.Audience != "" {
		c.Audience = overlay.Audience
	}
	if overlay.JWKSURL != "" {
		c.JWKSURL = overlay.JWKSURL
	}
	if overlay.ActorHeader != "" {
		c.ActorHeader = overlay.ActorHeader
	}
}

func (c *Config) loadDefaults() {
	if c.Mode == "" {
		c.Mode = ModeHMAC
	}
	if c.ActorHeader == "" {
		c.ActorHeader = "X-Actor-ID"
	}
}

func (c *Config) loadEnv(env *Env) {
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{env.Mode, &c.Mode},
		{env.Secret, &c.Secret},
		{env.Issuer, &c.Issuer},
		{env.Audience, &c.Audience},
		{env.JWKSURL, &c.JWKSURL},
		{env.ActorHeader, &c.ActorHeader},
	} {
		if f.name == "" {
			continue
		}
		if v := os.Getenv(f.name); v != "" {
			*f.dst = v
		}
	}
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeHeader:
	case ModeHMAC:
		if len(c.Secret) < 32 {
			return fmt.Errorf("secret must be at least 32 bytes")
		}
	case ModeOIDC:
		if c.Issuer == "" {
			return fmt.Errorf("issuer required")
		}
		if c.JWKSURL == "" {
			return fmt.Errorf("jwks_url required")
		}
	default:
		return fmt.Errorf("unsupported mode %q", c.Mode)
	}
	return nil
}
