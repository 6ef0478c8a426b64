package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Resilient decorates a Client with a shared token-bucket limiter and retry
// of transient failures. Every attempt waits on the limiter.
type Resilient struct {
	inner   Client
	limiter *rate.Limiter
	policy  RetryPolicy
}

// NewResilient wraps inner. A nil limiter disables throttling.
func NewResilient(inner Client, limiter *rate.Limiter, policy RetryPolicy) *Resilient {
	return &Resilient{inner: inner, limiter: limiter, policy: policy}
}

// NewLimiter builds a limiter allowing rps requests per second with a burst of one.
// Non-positive rps returns nil.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

func (r *Resilient) call(ctx context.Context, fn func() (string, error)) (string, error) {
	return Retry(ctx, r.policy, func() (string, error) {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limiter: %w", err)
			}
		}
		return fn()
	})
}

// GenerateContent implements Client
func (r *Resilient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return r.call(ctx, func() (string, error) { return r.inner.GenerateContent(ctx, prompt, tier) })
}

// GenerateJSON implements Client
func (r *Resilient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return r.call(ctx, func() (string, error) { return r.inner.GenerateJSON(ctx, prompt, tier) })
}

// GetModel implements Client
func (r *Resilient) GetModel(tier ModelTier) string { return r.inner.GetModel(tier) }

// Close implements Client
func (r *Resilient) Close() error { return r.inner.Close() }
