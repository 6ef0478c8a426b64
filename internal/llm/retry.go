package llm

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"google.golang.org/api/googleapi"

	"github.com/jonathan/career-navigator/internal/logging"
)

// RetryPolicy holds retry configuration
type RetryPolicy struct {
	MaxRetries  int           // Maximum number of retry attempts
	BaseDelay   time.Duration // Initial delay between retries
	MaxDelay    time.Duration // Maximum delay between retries
	Multiplier  float64       // Multiplier for exponential backoff
	JitterRatio float64       // Jitter ratio (0-1) applied as +/- randomness
}

// DefaultRetryPolicy returns the backoff used for provider calls
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
		JitterRatio: 0.1,
	}
}

var transientStatus = map[int]bool{429: true, 500: true, 502: true, 503: true, 529: true}

var transientMarkers = []string{
	"429", "500", "502", "503", "529",
	"rate_limit", "rate limit", "overloaded", "timeout", "RESOURCE_EXHAUSTED", "UNAVAILABLE",
}

// IsTransient reports whether err is worth retrying: rate limiting,
// provider overload, 5xx gateway failures and timeouts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return transientStatus[gErr.Code]
	}
	var aErr *anthropic.Error
	if errors.As(err, &aErr) {
		return transientStatus[aErr.StatusCode]
	}

	msg := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Retry executes fn, retrying transient errors with exponential backoff.
// Non-transient errors are returned immediately.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsTransient(err) {
			logging.Logger().Debug("non-retryable llm error", "error", err)
			return zero, err
		}
		if attempt == policy.MaxRetries {
			break
		}

		delay := policy.delay(attempt)
		logging.Logger().Debug("retrying llm call",
			"attempt", attempt+1,
			"max_retries", policy.MaxRetries,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}

// delay computes the wait before retry number attempt+1
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.JitterRatio > 0 {
		d += d * p.JitterRatio * (rand.Float64()*2 - 1)
	}
	return time.Duration(d)
}
