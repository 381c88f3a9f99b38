package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/countersign/pkg/formatting"
	"github.com/JaimeStill/countersign/pkg/middleware"
	"github.com/JaimeStill/countersign/pkg/module"
	"github.com/JaimeStill/countersign/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "COUNTERSIGN_CORS_ENABLED",
	Origins:          "COUNTERSIGN_CORS_ORIGINS",
	AllowedMethods:   "COUNTERSIGN_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "COUNTERSIGN_CORS_ALLOWED_HEADERS",
	ExposedHeaders:   "COUNTERSIGN_CORS_EXPOSED_HEADERS",
	AllowCredentials: "COUNTERSIGN_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "COUNTERSIGN_CORS_MAX_AGE",
}

var paginationEnv = &pagination.Env{
	DefaultPageSize: "COUNTERSIGN_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "COUNTERSIGN_PAGINATION_MAX_PAGE_SIZE",
	MaxSearchLength: "COUNTERSIGN_PAGINATION_MAX_SEARCH_LENGTH",
}

// APIConfig holds API routing, CORS, and pagination settings.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize string                `toml:"max_upload_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Pagination    pagination.Config     `toml:"pagination"`
}

// MaxUploadSizeBytes returns the document upload limit, falling back to 50MB
// when the configured size does not parse.
func (c *APIConfig) MaxUploadSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return 50 * 1024 * 1024 // 50MB fallback
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	if err := c.validate(); err != nil {
		return err
	}

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "50MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("COUNTERSIGN_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("COUNTERSIGN_API_MAX_UPLOAD_SIZE"); v != "" {
		c.MaxUploadSize = v
	}
}

// validate rejects base paths the module router cannot mount.
func (c *APIConfig) validate() error {
	if err := module.ValidatePrefix(c.BasePath); err != nil {
		return fmt.Errorf("invalid base_path: %w", err)
	}
	if _, err := formatting.ParseBytes(c.MaxUploadSize); err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	return nil
}
