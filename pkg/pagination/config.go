// Package pagination provides types and utilities for paginated data queries.
package pagination

import (
	"fmt"
	"os"
	"strconv"
)

const maxPageSizeLimit = 1000

// Config holds page size limits and the longest accepted search term.
type Config struct {
	DefaultPageSize int `json:"default_page_size" toml:"default_page_size"`
	MaxPageSize     int `json:"max_page_size" toml:"max_page_size"`
	// MaxSearchLength caps the search term in runes; longer terms are cut.
	MaxSearchLength int `json:"max_search_length" toml:"max_search_length"`
}

// Env maps environment variable names for pagination configuration.
type Env struct {
	DefaultPageSize string
	MaxPageSize     string
	MaxSearchLength string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge applies non-zero values from the overlay configuration.
func (c *Config) Merge(overlay *Config) {
	for _, f := range []struct{ dst, v *int }{
		{&c.DefaultPageSize, &overlay.DefaultPageSize},
		{&c.MaxPageSize, &overlay.MaxPageSize},
		{&c.MaxSearchLength, &overlay.MaxSearchLength},
	} {
		if *f.v != 0 {
			*f.dst = *f.v
		}
	}
}

func (c *Config) loadDefaults() {
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 20
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 100
	}
	if c.MaxSearchLength <= 0 {
		c.MaxSearchLength = 200
	}
}

func (c *Config) loadEnv(env *Env) {
	for _, f := range []struct {
		name string
		dst  *int
	}{
		{env.DefaultPageSize, &c.DefaultPageSize},
		{env.MaxPageSize, &c.MaxPageSize},
		{env.MaxSearchLength, &c.MaxSearchLength},
	} {
		if f.name == "" {
			continue
		}
		if n, err := strconv.Atoi(os.Getenv(f.name)); err == nil {
			*f.dst = n
		}
	}
}

func (c *Config) validate() error {
	if c.DefaultPageSize < 1 {
		return fmt.Errorf("default_page_size must be positive")
	}
	if c.MaxPageSize < 1 {
		return fmt.Errorf("max_page_size must be positive")
	}
	if c.MaxPageSize > maxPageSizeLimit {
		return fmt.Errorf("max_page_size cannot exceed %d", maxPageSizeLimit)
	}
	if c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("default_page_size cannot exceed max_page_size")
	}
	if c.MaxSearchLength < 1 {
		return fmt.Errorf("max_search_length must be positive")
	}
	return nil
}
