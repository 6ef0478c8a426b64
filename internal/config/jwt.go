package config

import (
	"fmt"
	"time"
)

// JWTConfig holds configuration for JWT token generation and validation.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// Expiration returns the token lifetime.
func (c *JWTConfig) Expiration() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

// JWT returns the token settings, or nil when no secret is configured and
// authentication is disabled.
func (c *Config) JWT() (*JWTConfig, error) {
	if c.Auth.JWTSecret == "" {
		return nil, nil
	}
	jwtConfig := &JWTConfig{
		Secret:          c.Auth.JWTSecret,
		ExpirationHours: c.Auth.JWTExpirationHours,
	}
	if err := jwtConfig.normalize(); err != nil {
		return nil, err
	}
	return jwtConfig, nil
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("jwt secret cannot be empty")
	}
	if len(c.Secret) < 16 {
		return fmt.Errorf("jwt secret must be at least 16 characters")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("jwt expiration must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
