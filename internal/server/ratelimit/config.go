package ratelimit

import (
	"net/http"
	"time"

	"github.com/jonathan/career-navigator/internal/config"
)

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	DefaultBurst    int
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// DefaultConfig returns an enabled limiter of 60 requests per minute.
func DefaultConfig() *Config {
	return FromSettings(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 10})
}

// FromSettings builds a limiter configuration from the process settings.
func FromSettings(settings config.RateLimitConfig) *Config {
	if !settings.Enabled {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    settings.RequestsPerMinute,
		DefaultWindow:   time.Minute,
		DefaultBurst:    settings.Burst,
		CleanupInterval: 5 * time.Minute,
		Whitelist:       make(map[string]bool),
		Blacklist:       make(map[string]bool),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns limits for endpoints that call the language model.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		{Path: "/workflow/ingest", Method: http.MethodPost, Limit: 20, Window: time.Hour, Burst: 3},
		{Path: "/workflow/users/", Method: http.MethodPost, Limit: 60, Window: time.Hour, Burst: 5},
		{Path: "/workflow/runs/", Method: http.MethodPost, Limit: 60, Window: time.Hour, Burst: 5},
		{Path: "/auth/", Method: http.MethodPost, Limit: 20, Window: time.Minute, Burst: 5},
	}
}
