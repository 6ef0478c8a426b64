package llm

import (
	"context"
	"fmt"
)

// Client is an abstraction over LLM providers
type Client interface {
	// GenerateContent generates text content using the specified model tier
	GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error)
	// GenerateJSON generates JSON content using the specified model tier
	GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error)
	// GetModel returns the underlying provider model for a tier
	GetModel(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a provider client from configuration, wrapped with
// retry and throttling.
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	var (
		inner Client
		err   error
	)
	switch config.Provider {
	case ProviderAnthropic:
		inner, err = NewAnthropicClient(config, apiKey)
	case ProviderGemini, "":
		inner, err = NewGeminiClient(ctx, config, apiKey)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", config.Provider)
	}
	if err != nil {
		return nil, err
	}

	policy := DefaultRetryPolicy()
	policy.MaxRetries = config.MaxRetries
	return NewResilient(inner, NewLimiter(config.RequestsPerSecond), policy), nil
}

// withTimeout applies the per-call timeout of config, if any
func withTimeout(ctx context.Context, config *Config) (context.Context, context.CancelFunc) {
	if config.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, config.Timeout)
}
