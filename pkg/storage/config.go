package storage

import (
	"fmt"
	"os"
	"strconv"
)

// Backend types.
const (
	TypeAzure  = "azure"
	TypeS3     = "s3"
	TypeMemory = "memory"
)

// Config holds blob storage parameters. Container names the Azure container
// or the S3 bucket depending on Type.
type Config struct {
	Type             string `toml:"type"`
	Container        string `toml:"container"`
	MaxRetries       int    `toml:"max_retries"`
	ConnectionString string `toml:"connection_string"`
	AccountURL       string `toml:"account_url"`
	Region           string `toml:"region"`
	Endpoint         string `toml:"endpoint"`
	AccessKey        string `toml:"access_key"`
	SecretKey        string `toml:"secret_key"`
	UsePathStyle     bool   `toml:"use_path_style"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Type             string
	Container        string
	MaxRetries       string
	ConnectionString string
	AccountURL       string
	Region           string
	Endpoint         string
	AccessKey        string
	SecretKey        string
	UsePathStyle     string
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
	if overlay.Container != "" {
		c.Container = overlay.Container
	}
	if overlay.MaxRetries != 0 {
		c.MaxRetries = overlay.MaxRetries
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if overlay.AccountURL != "" {
		c.AccountURL = overlay.AccountURL
	}
	if overlay.Region != "" {
		c.Region = overlay.Region
	}
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.AccessKey != "" {
		c.AccessKey = overlay.AccessKey
	}
	if overlay.SecretKey != "" {
		c.SecretKey = overlay.SecretKey
	}
	if overlay.UsePathStyle {
		c.UsePathStyle = true
	}
}

func (c *Config) loadDefaults() {
	if c.Type == "" {
		c.Type = TypeAzure
	}
	if c.Container == "" {
		c.Container = "countersign"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.Type == TypeS3 && c.Region == "" {
		c.Region = "us-east-1"
	}
}

func (c *Config) loadEnv(env *Env) {
	setString := func(name string, dst *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	setString(env.Type, &c.Type)
	setString(env.Container, &c.Container)
	setString(env.ConnectionString, &c.ConnectionString)
	setString(env.AccountURL, &c.AccountURL)
	setString(env.Region, &c.Region)
	setString(env.Endpoint, &c.Endpoint)
	setString(env.AccessKey, &c.AccessKey)
	setString(env.SecretKey, &c.SecretKey)

	if env.MaxRetries != "" {
		if v := os.Getenv(env.MaxRetries); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.MaxRetries = n
			}
		}
	}
	if env.UsePathStyle != "" {
		if v := os.Getenv(env.UsePathStyle); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.UsePathStyle = b
			}
		}
	}
}

const maxRetries = 10

func (c *Config) validate() error {
	if c.Container == "" {
		return fmt.Errorf("container required")
	}
	if c.MaxRetries < 0 || c.MaxRetries > maxRetries {
		return fmt.Errorf("max_retries must be between 0 and %d", maxRetries)
	}

	switch c.Type {
	case TypeAzure:
		if c.ConnectionString == "" && c.AccountURL == "" {
			return fmt.Errorf("connection_string or account_url required")
		}
	case TypeS3:
		if c.AccessKey != "" && c.SecretKey == "" {
			return fmt.Errorf("secret_key required with access_key")
		}
	case TypeMemory:
	default:
		return fmt.Errorf("unsupported type %q", c.Type)
	}
	return nil
}
