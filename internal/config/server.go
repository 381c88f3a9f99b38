package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	EnvServerHost              = "COUNTERSIGN_SERVER_HOST"
	EnvServerPort              = "COUNTERSIGN_SERVER_PORT"
	EnvServerReadTimeout       = "COUNTERSIGN_SERVER_READ_TIMEOUT"
	EnvServerReadHeaderTimeout = "COUNTERSIGN_SERVER_READ_HEADER_TIMEOUT"
	EnvServerWriteTimeout      = "COUNTERSIGN_SERVER_WRITE_TIMEOUT"
	EnvServerIdleTimeout       = "COUNTERSIGN_SERVER_IDLE_TIMEOUT"
	EnvServerShutdownTimeout   = "COUNTERSIGN_SERVER_SHUTDOWN_TIMEOUT"
	EnvServerTLSCertFile       = "COUNTERSIGN_SERVER_TLS_CERT_FILE"
	EnvServerTLSKeyFile        = "COUNTERSIGN_SERVER_TLS_KEY_FILE"
)

// ServerConfig holds HTTP server parameters. TLS is enabled when both the
// certificate and key files are set.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	ReadTimeout       string `toml:"read_timeout"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
	WriteTimeout      string `toml:"write_timeout"`
	IdleTimeout       string `toml:"idle_timeout"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
	TLSCertFile       string `toml:"tls_cert_file"`
	TLSKeyFile        string `toml:"tls_key_file"`
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// TLS reports whether the server terminates TLS itself.
func (c *ServerConfig) TLS() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// ReadTimeoutDuration returns ReadTimeout as a time.Duration.
func (c *ServerConfig) ReadTimeoutDuration() time.Duration {
	return duration(c.ReadTimeout)
}

// ReadHeaderTimeoutDuration returns ReadHeaderTimeout as a time.Duration.
func (c *ServerConfig) ReadHeaderTimeoutDuration() time.Duration {
	return duration(c.ReadHeaderTimeout)
}

// WriteTimeoutDuration returns WriteTimeout as a time.Duration.
func (c *ServerConfig) WriteTimeoutDuration() time.Duration {
	return duration(c.WriteTimeout)
}

// IdleTimeoutDuration returns IdleTimeout as a time.Duration.
func (c *ServerConfig) IdleTimeoutDuration() time.Duration {
	return duration(c.IdleTimeout)
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return duration(c.ShutdownTimeout)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	for _, f := range []struct{ dst, src *string }{
		{&c.ReadTimeout, &overlay.ReadTimeout},
		{&c.ReadHeaderTimeout, &overlay.ReadHeaderTimeout},
		{&c.WriteTimeout, &overlay.WriteTimeout},
		{&c.IdleTimeout, &overlay.IdleTimeout},
		{&c.ShutdownTimeout, &overlay.ShutdownTimeout},
		{&c.TLSCertFile, &overlay.TLSCertFile},
		{&c.TLSKeyFile, &overlay.TLSKeyFile},
	} {
		if *f.src != "" {
			*f.dst = *f.src
		}
	}
}

func (c *ServerConfig) loadDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "1m"
	}
	if c.ReadHeaderTimeout == "" {
		c.ReadHeaderTimeout = "10s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "2m"
	}
	if c.IdleTimeout == "" {
		c.IdleTimeout = "2m"
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
}

func (c *ServerConfig) loadEnv() {
	if v := os.Getenv(EnvServerHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvServerPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	for _, f := range []struct {
		env string
		dst *string
	}{
		{EnvServerReadTimeout, &c.ReadTimeout},
		{EnvServerReadHeaderTimeout, &c.ReadHeaderTimeout},
		{EnvServerWriteTimeout, &c.WriteTimeout},
		{EnvServerIdleTimeout, &c.IdleTimeout},
		{EnvServerShutdownTimeout, &c.ShutdownTimeout},
		{EnvServerTLSCertFile, &c.TLSCertFile},
		{EnvServerTLSKeyFile, &c.TLSKeyFile},
	} {
		if v := os.Getenv(f.env); v != "" {
			*f.dst = v
		}
	}
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	for _, f := range []struct{ name, value string }{
		{"read_timeout", c.ReadTimeout},
		{"read_header_timeout", c.ReadHeaderTimeout},
		{"write_timeout", c.WriteTimeout},
		{"idle_timeout", c.IdleTimeout},
		{"shutdown_timeout", c.ShutdownTimeout},
	} {
		if _, err := time.ParseDuration(f.value); err != nil {
			return fmt.Errorf("invalid %s: %w", f.name, err)
		}
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("tls_cert_file and tls_key_file must be set together")
	}
	return nil
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
