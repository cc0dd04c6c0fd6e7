package config

import (
	"os"
	"testing"
	"time"
)

var envVars = []string{
	"JWKS_HOST",
	"JWKS_PORT",
	"JWKS_URI",
	"JWKS_FETCH_TIMEOUT",
	"JWKS_MAX_BODY_BYTES",
	"JWKS_RATE_LIMIT",
	"JWKS_CORS_ORIGINS",
	"JWKS_LOG_LEVEL",
	"JWKS_LOG_FORMAT",
}

func clearJWKSEnvVars() {
	for _, name := range envVars {
		os.Unsetenv(name)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearJWKSEnvVars()
	os.Setenv("JWKS_URI", "https://idp.example.com/.well-known/jwks.json")
	defer clearJWKSEnvVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Host != "0.0.0.0" {
		t.Errorf("Expected default host '0.0.0.0', got '%s'", cfg.Host)
	}
	if cfg.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Port)
	}
	if cfg.FetchTimeout != 10*time.Second {
		t.Errorf("Expected default fetch timeout 10s, got %s", cfg.FetchTimeout)
	}
	if cfg.MaxBodyBytes != 1048576 {
		t.Errorf("Expected default max body bytes 1048576, got %d", cfg.MaxBodyBytes)
	}
	if cfg.RateLimit != 60 {
		t.Errorf("Expected default rate limit 60, got %d", cfg.RateLimit)
	}
	if len(cfg.CORSOrigins) != 0 {
		t.Errorf("Expected no CORS origins, got %v", cfg.CORSOrigins)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("Expected default log format 'json', got '%s'", cfg.LogFormat)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearJWKSEnvVars()

	os.Setenv("JWKS_HOST", "127.0.0.1")
	os.Setenv("JWKS_PORT", "9090")
	os.Setenv("JWKS_URI", "http://localhost:8081/jwks")
	os.Setenv("JWKS_FETCH_TIMEOUT", "3s")
	os.Setenv("JWKS_RATE_LIMIT", "0")
	os.Setenv("JWKS_CORS_ORIGINS", "https://a.example.com,https://b.example.com")
	os.Setenv("JWKS_LOG_LEVEL", "debug")
	os.Setenv("JWKS_LOG_FORMAT", "text")
	defer clearJWKSEnvVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Addr() != "127.0.0.1:9090" {
		t.Errorf("Expected addr '127.0.0.1:9090', got '%s'", cfg.Addr())
	}
	if cfg.URI != "http://localhost:8081/jwks" {
		t.Errorf("Expected URI from env, got '%s'", cfg.URI)
	}
	if cfg.FetchTimeout != 3*time.Second {
		t.Errorf("Expected fetch timeout 3s, got %s", cfg.FetchTimeout)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("Expected rate limit 0, got %d", cfg.RateLimit)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example.com" {
		t.Errorf("Unexpected CORS origins: %v", cfg.CORSOrigins)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "text" {
		t.Errorf("Unexpected logging config: %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoadRequiresURI(t *testing.T) {
	clearJWKSEnvVars()

	if _, err := Load(); err == nil {
		t.Error("Expected error when JWKS_URI is not set")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			URI:          "https://idp.example.com/jwks",
			FetchTimeout: time.Second,
			MaxBodyBytes: 1024,
			RateLimit:    10,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"relative uri", func(c *Config) { c.URI = "/jwks" }, true},
		{"ftp uri", func(c *Config) { c.URI = "ftp://idp.example.com/jwks" }, true},
		{"zero timeout", func(c *Config) { c.FetchTimeout = 0 }, true},
		{"zero body limit", func(c *Config) { c.MaxBodyBytes = 0 }, true},
		{"negative rate limit", func(c *Config) { c.RateLimit = -1 }, true},
		{"rate limit disabled", func(c *Config) { c.RateLimit = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
