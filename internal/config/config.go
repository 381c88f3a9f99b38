package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/countersign/internal/approvals"
	"github.com/JaimeStill/countersign/internal/audit"
	"github.com/JaimeStill/countersign/internal/notify"
	"github.com/JaimeStill/countersign/internal/render"
	"github.com/JaimeStill/countersign/pkg/auth"
	"github.com/JaimeStill/countersign/pkg/database"
	"github.com/JaimeStill/countersign/pkg/mongodb"
	"github.com/JaimeStill/countersign/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvCountersignEnv             = "COUNTERSIGN_ENV"
	EnvCountersignShutdownTimeout = "COUNTERSIGN_SHUTDOWN_TIMEOUT"
	EnvCountersignVersion         = "COUNTERSIGN_VERSION"
)

var databaseEnv = &database.Env{
	Host:             "COUNTERSIGN_DB_HOST",
	Port:             "COUNTERSIGN_DB_PORT",
	Name:             "COUNTERSIGN_DB_NAME",
	User:             "COUNTERSIGN_DB_USER",
	Password:         "COUNTERSIGN_DB_PASSWORD",
	SSLMode:          "COUNTERSIGN_DB_SSL_MODE",
	ApplicationName:  "COUNTERSIGN_DB_APPLICATION_NAME",
	StatementTimeout: "COUNTERSIGN_DB_STATEMENT_TIMEOUT",
	MaxOpenConns:     "COUNTERSIGN_DB_MAX_OPEN_CONNS",
	MaxIdleConns:     "COUNTERSIGN_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime:  "COUNTERSIGN_DB_CONN_MAX_LIFETIME",
	ConnTimeout:      "COUNTERSIGN_DB_CONN_TIMEOUT",
}

var mongoEnv = &mongodb.Env{
	URI:         "COUNTERSIGN_MONGO_URI",
	Database:    "COUNTERSIGN_MONGO_DATABASE",
	ConnTimeout: "COUNTERSIGN_MONGO_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Type:             "COUNTERSIGN_STORAGE_TYPE",
	Container:        "COUNTERSIGN_STORAGE_CONTAINER",
	MaxRetries:       "COUNTERSIGN_STORAGE_MAX_RETRIES",
	ConnectionString: "COUNTERSIGN_STORAGE_CONNECTION_STRING",
	AccountURL:       "COUNTERSIGN_STORAGE_ACCOUNT_URL",
	Region:           "COUNTERSIGN_STORAGE_REGION",
	Endpoint:         "COUNTERSIGN_STORAGE_ENDPOINT",
	AccessKey:        "COUNTERSIGN_STORAGE_ACCESS_KEY",
	SecretKey:        "COUNTERSIGN_STORAGE_SECRET_KEY",
	UsePathStyle:     "COUNTERSIGN_STORAGE_USE_PATH_STYLE",
}

var authEnv = &auth.Env{
	Mode:        "COUNTERSIGN_AUTH_MODE",
	Secret:      "COUNTERSIGN_AUTH_SECRET",
	Issuer:      "COUNTERSIGN_AUTH_ISSUER",
	Audience:    "COUNTERSIGN_AUTH_AUDIENCE",
	JWKSURL:     "COUNTERSIGN_AUTH_JWKS_URL",
	ActorHeader: "COUNTERSIGN_AUTH_ACTOR_HEADER",
}

// Config is the root configuration for the Countersign service.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	Database        database.Config  `toml:"database"`
	Mongo           mongodb.Config   `toml:"mongo"`
	Storage         storage.Config   `toml:"storage"`
	Auth            auth.Config      `toml:"auth"`
	API             APIConfig        `toml:"api"`
	Workflow        approvals.Config `toml:"workflow"`
	Audit           audit.Config     `toml:"audit"`
	Render          render.Config    `toml:"render"`
	Notify          notify.Config    `toml:"notify"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
}

// Env returns the COUNTERSIGN_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvCountersignEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Mongo.Merge(&overlay.Mongo)
	c.Storage.Merge(&overlay.Storage)
	c.Auth.Merge(&overlay.Auth)
	c.API.Merge(&overlay.API)
	c.Workflow.Merge(&overlay.Workflow)
	c.Audit.Merge(&overlay.Audit)
	c.Render.Merge(&overlay.Render)
	c.Notify.Merge(&overlay.Notify)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Mongo.Finalize(mongoEnv); err != nil {
		return fmt.Errorf("mongo: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return c.finalizeDomain()
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvCountersignShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvCountersignVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvCountersignEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
