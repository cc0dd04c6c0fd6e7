// Package config handles application configuration via environment variables.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the resolver service.
type Config struct {
	// Server settings
	Host string `env:"JWKS_HOST" env-default:"0.0.0.0"`
	Port int    `env:"JWKS_PORT" env-default:"8080"`

	// Upstream key set
	URI          string        `env:"JWKS_URI" env-required:"true"`
	FetchTimeout time.Duration `env:"JWKS_FETCH_TIMEOUT" env-default:"10s"`
	MaxBodyBytes int64         `env:"JWKS_MAX_BODY_BYTES" env-default:"1048576"`

	// Rate limiting
	RateLimit int `env:"JWKS_RATE_LIMIT" env-default:"60"` // requests per minute per client IP, 0 disables

	// CORS
	CORSOrigins []string `env:"JWKS_CORS_ORIGINS" env-separator:","`

	// Logging
	LogLevel  string `env:"JWKS_LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"JWKS_LOG_FORMAT" env-default:"json"` // json or text
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values cleanenv cannot express as tags.
func (c *Config) Validate() error {
	u, err := url.Parse(c.URI)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("JWKS_URI must be an absolute http(s) URL, got %q", c.URI)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("JWKS_FETCH_TIMEOUT must be positive, got %s", c.FetchTimeout)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("JWKS_MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("JWKS_RATE_LIMIT must not be negative, got %d", c.RateLimit)
	}
	return nil
}

// Addr returns the server address in host:port format.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
