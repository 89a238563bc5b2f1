// Package api provides the HTTP server infrastructure for FriendsWall.
// This package contains the main server implementation while the JSON API
// endpoints are organized in the v2 subpackage.
package api

import (
	"fmt"
	"net"
	"time"

	"github.com/friendswall/friendswall-go/internal/conf"
	"github.com/friendswall/friendswall-go/internal/logger"
)

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds the HTTP server configuration.
// It consolidates settings from various sources into a single structure
// for easy server initialization.
type Config struct {
	// Server binding
	Listen string // host:port, host may be empty

	// Security settings
	AllowedOrigins []string // origins allowed to use the session cookie cross-origin
	HSTS           bool     // send Strict-Transport-Security on TLS requests

	// Timeouts
	ReadTimeout     time.Duration // Maximum duration for reading request
	IdleTimeout     time.Duration // Maximum time to wait for next request
	ShutdownTimeout time.Duration // Maximum time to wait for graceful shutdown

	// Limits
	BodyLimit string // Maximum request body size (e.g., "1M", "10M")

	// Metrics
	MetricsEnabled bool
	MetricsPath    string

	// Logging
	Debug    bool            // Enable debug mode
	LogLevel logger.LogLevel // Logging level
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:          ":8080",
		AllowedOrigins:  []string{"*"},
		ReadTimeout:     DefaultReadTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       "2M",
		MetricsPath:     "/metrics",
		LogLevel:        logger.LogLevelInfo,
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()

	if settings.WebServer.Listen != "" {
		cfg.Listen = settings.WebServer.Listen
	}
	if settings.WebServer.ReadTimeout > 0 {
		cfg.ReadTimeout = settings.WebServer.ReadTimeout
	}
	if settings.WebServer.IdleTimeout > 0 {
		cfg.IdleTimeout = settings.WebServer.IdleTimeout
	}
	if settings.WebServer.BodyLimit != "" {
		cfg.BodyLimit = settings.WebServer.BodyLimit
	}
	if len(settings.WebServer.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = settings.WebServer.AllowedOrigins
	}
	// Secure cookies imply the server is only reached over TLS.
	cfg.HSTS = settings.Security.SecureCookie

	cfg.MetricsEnabled = settings.Metrics.Enabled
	if settings.Metrics.Path != "" {
		cfg.MetricsPath = settings.Metrics.Path
	}

	cfg.Debug = settings.WebServer.Debug || settings.Debug
	if cfg.Debug {
		cfg.LogLevel = logger.LogLevelDebug
	}

	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.Listen, err)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.MetricsEnabled && (c.MetricsPath == "" || c.MetricsPath[0] != '/') {
		return fmt.Errorf("metrics path must start with /")
	}
	return nil
}

// String returns a human-readable representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf("Server Config: listen=%s, metrics=%v, debug=%v",
		c.Listen, c.MetricsEnabled, c.Debug)
}
