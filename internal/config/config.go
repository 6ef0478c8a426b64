// Package config loads process configuration from an optional file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonathan/career-navigator/internal/llm"
)

// DefaultConfigName is looked up in the working directory when no path is given.
const DefaultConfigName = "career_navigator"

// Checkpoint backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config is the full process configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	LLM        LLMConfig        `mapstructure:"llm" yaml:"llm"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint" yaml:"checkpoint"`
	Auth       AuthConfig       `mapstructure:"auth" yaml:"auth"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit" yaml:"ratelimit"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Fetch      FetchConfig      `mapstructure:"fetch" yaml:"fetch"`
}

type ServerConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url,omitempty"`
}

// ModelsConfig names the provider model per tier. Empty entries use provider defaults.
type ModelsConfig struct {
	Lite     string `mapstructure:"lite" yaml:"lite,omitempty"`
	Standard string `mapstructure:"standard" yaml:"standard,omitempty"`
	Advanced string `mapstructure:"advanced" yaml:"advanced,omitempty"`
}

type LLMConfig struct {
	Provider          string       `mapstructure:"provider" yaml:"provider"`
	APIKey            string       `mapstructure:"api_key" yaml:"-"`
	Models            ModelsConfig `mapstructure:"models" yaml:"models"`
	MaxRetries        int          `mapstructure:"max_retries" yaml:"max_retries"`
	RequestsPerSecond float64      `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	TimeoutSeconds    int          `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

type CheckpointConfig struct {
	Backend   string `mapstructure:"backend" yaml:"backend"`
	RedisURL  string `mapstructure:"redis_url" yaml:"redis_url,omitempty"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
	TTLHours  int    `mapstructure:"ttl_hours" yaml:"ttl_hours"`
}

type AuthConfig struct {
	JWTSecret          string `mapstructure:"jwt_secret" yaml:"-"`
	JWTExpirationHours int    `mapstructure:"jwt_expiration_hours" yaml:"jwt_expiration_hours"`
	BcryptCost         int    `mapstructure:"bcrypt_cost" yaml:"bcrypt_cost"`
	PasswordPepper     string `mapstructure:"password_pepper" yaml:"-"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	Burst             int  `mapstructure:"burst" yaml:"burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type FetchConfig struct {
	UseBrowser     bool `mapstructure:"use_browser" yaml:"use_browser"`
	TimeoutSeconds int  `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

var defaults = map[string]any{
	"server.port":                   8080,
	"database.url":                  "",
	"llm.provider":                  string(llm.ProviderGemini),
	"llm.api_key":                   "",
	"llm.models.lite":               "",
	"llm.models.standard":           "",
	"llm.models.advanced":           "",
	"llm.max_retries":               3,
	"llm.requests_per_second":       2.0,
	"llm.timeout_seconds":           120,
	"checkpoint.backend":            BackendPostgres,
	"checkpoint.redis_url":          "",
	"checkpoint.key_prefix":         "career_navigator:checkpoint:",
	"checkpoint.ttl_hours":          0,
	"auth.jwt_secret":               "",
	"auth.jwt_expiration_hours":     24,
	"auth.bcrypt_cost":              12,
	"auth.password_pepper":          "",
	"ratelimit.enabled":             true,
	"ratelimit.requests_per_minute": 60,
	"ratelimit.burst":               10,
	"log.level":                     "info",
	"log.format":                    "text",
	"fetch.use_browser":             false,
	"fetch.timeout_seconds":         30,
}

// conventional environment names accepted besides the derived ones (SERVER_PORT, LOG_LEVEL, ...)
var envAliases = map[string][]string{
	"database.url":         {"DATABASE_URL"},
	"checkpoint.redis_url": {"CHECKPOINT_REDIS_URL", "REDIS_URL"},
	"auth.jwt_secret":      {"AUTH_JWT_SECRET", "JWT_SECRET"},
	"auth.bcrypt_cost":     {"AUTH_BCRYPT_COST", "BCRYPT_COST"},
	"auth.password_pepper": {"AUTH_PASSWORD_PEPPER", "PASSWORD_PEPPER"},
	"gemini_api_key":       {"GEMINI_API_KEY"},
	"anthropic_api_key":    {"ANTHROPIC_API_KEY"},
}

// Load reads configuration. An explicit path must exist; without one,
// ./career_navigator.{yaml,json} is read when present. Environment variables
// override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		switch llm.Provider(cfg.LLM.Provider) {
		case llm.ProviderAnthropic:
			cfg.LLM.APIKey = v.GetString("anthropic_api_key")
		default:
			cfg.LLM.APIKey = v.GetString("gemini_api_key")
		}
	}
	return &cfg, nil
}

// Validate checks value ranges and cross-field requirements.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: 'server.port' must be in 1-65535, got %d", c.Server.Port)
	}

	switch llm.Provider(c.LLM.Provider) {
	case llm.ProviderGemini, llm.ProviderAnthropic:
	default:
		return fmt.Errorf("config error: unknown 'llm.provider' %q (valid: gemini, anthropic)", c.LLM.Provider)
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("config error: 'llm.max_retries' must be non-negative")
	}
	if c.LLM.RequestsPerSecond < 0 {
		return fmt.Errorf("config error: 'llm.requests_per_second' must be non-negative")
	}

	switch c.Checkpoint.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Checkpoint.RedisURL == "" {
			return fmt.Errorf("config error: checkpoint backend 'redis' requires 'checkpoint.redis_url'")
		}
	case BackendPostgres:
	default:
		return fmt.Errorf("config error: unknown 'checkpoint.backend' %q (valid: memory, redis, postgres)", c.Checkpoint.Backend)
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerMinute <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("config error: 'ratelimit.requests_per_minute' and 'ratelimit.burst' must be positive when enabled")
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config error: unknown 'log.format' %q (valid: text, json)", c.Log.Format)
	}

	if _, err := c.Password(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if _, err := c.JWT(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// LLMClientConfig returns provider settings with tier models filled from provider defaults.
func (c *Config) LLMClientConfig() *llm.Config {
	out := llm.DefaultConfigFor(llm.Provider(c.LLM.Provider))
	for tier, model := range map[llm.ModelTier]string{
		llm.TierLite:     c.LLM.Models.Lite,
		llm.TierStandard: c.LLM.Models.Standard,
		llm.TierAdvanced: c.LLM.Models.Advanced,
	} {
		if model != "" {
			out = out.WithModel(tier, model)
		}
	}
	out.MaxRetries = c.LLM.MaxRetries
	out.RequestsPerSecond = c.LLM.RequestsPerSecond
	out.Timeout = time.Duration(c.LLM.TimeoutSeconds) * time.Second
	return out
}

// CheckpointTTL is the expiry applied to stored checkpoints. Zero keeps them.
func (c *Config) CheckpointTTL() time.Duration {
	return time.Duration(c.Checkpoint.TTLHours) * time.Hour
}

// FetchTimeout bounds a single profile page fetch.
func (c *Config) FetchTimeout() time.Duration {
	if c.Fetch.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}
