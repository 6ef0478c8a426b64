package ratelimit

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/career-navigator/internal/config"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, cfg *Config) (*Limiter, *clock) {
	t.Helper()
	cfg.CleanupInterval = 0
	c := &clock{now: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLimiter(cfg)
	l.now = c.Now
	t.Cleanup(l.Stop)
	return l, c
}

func TestLimiter_BurstThenDeny(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 60, DefaultWindow: time.Minute, DefaultBurst: 3})

	for i := range 3 {
		allowed, info := l.Allow("10.0.0.1", "/users/x/profile", http.MethodGet)
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 60, info.Limit)
		assert.Equal(t, 2-i, info.Remaining)
	}

	allowed, info := l.Allow("10.0.0.1", "/users/x/profile", http.MethodGet)
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, time.Second, info.RetryAfter)
	assert.True(t, info.ResetTime.After(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestLimiter_Refill(t *testing.T) {
	l, c := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 60, DefaultWindow: time.Minute, DefaultBurst: 1})

	allowed, _ := l.Allow("client", "/x", http.MethodGet)
	require.True(t, allowed)
	allowed, _ = l.Allow("client", "/x", http.MethodGet)
	require.False(t, allowed)

	c.Advance(time.Second)
	allowed, _ = l.Allow("client", "/x", http.MethodGet)
	assert.True(t, allowed)
}

func TestLimiter_DeniedRequestsDoNotBorrow(t *testing.T) {
	l, c := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 60, DefaultWindow: time.Minute, DefaultBurst: 1})

	allowed, _ := l.Allow("client", "/x", http.MethodGet)
	require.True(t, allowed)
	for range 5 {
		allowed, _ = l.Allow("client", "/x", http.MethodGet)
		require.False(t, allowed)
	}

	c.Advance(time.Second)
	allowed, _ = l.Allow("client", "/x", http.MethodGet)
	assert.True(t, allowed)
}

func TestLimiter_ClientsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 60, DefaultWindow: time.Minute, DefaultBurst: 1})

	allowed, _ := l.Allow("a", "/x", http.MethodGet)
	require.True(t, allowed)
	allowed, _ = l.Allow("b", "/x", http.MethodGet)
	assert.True(t, allowed)
	allowed, _ = l.Allow("a", "/x", http.MethodGet)
	assert.False(t, allowed)
}

func TestLimiter_EndpointConfig(t *testing.T) {
	cfg := FromSettings(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1000, Burst: 1000})
	l, _ := newTestLimiter(t, cfg)

	for range 3 {
		allowed, info := l.Allow("client", "/workflow/ingest", http.MethodPost)
		require.True(t, allowed)
		assert.Equal(t, 20, info.Limit)
	}
	allowed, _ := l.Allow("client", "/workflow/ingest", http.MethodPost)
	assert.False(t, allowed)

	// Prefix rules share one bucket across users.
	for i := range 5 {
		allowed, _ := l.Allow("client", fmt.Sprintf("/workflow/users/%d/validate", i), http.MethodPost)
		require.True(t, allowed)
	}
	allowed, _ = l.Allow("client", "/workflow/users/9/generate", http.MethodPost)
	assert.False(t, allowed)

	allowed, _ = l.Allow("client", "/workflow/runs/user_x", http.MethodGet)
	assert.True(t, allowed, "reads use the default bucket")
}

func TestLimiter_DisabledAndLists(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: false})
	for range 100 {
		allowed, _ := l.Allow("client", "/x", http.MethodGet)
		require.True(t, allowed)
	}

	l, _ = newTestLimiter(t, &Config{
		Enabled: true, DefaultLimit: 1, DefaultWindow: time.Hour, DefaultBurst: 1,
		Whitelist: map[string]bool{"trusted": true},
		Blacklist: map[string]bool{"banned": true},
	})
	for range 5 {
		allowed, _ := l.Allow("trusted", "/x", http.MethodGet)
		require.True(t, allowed)
	}
	allowed, _ := l.Allow("banned", "/x", http.MethodGet)
	assert.False(t, allowed)

	allowed, info := l.Allow("anyone", "/health", http.MethodGet)
	assert.True(t, allowed)
	assert.Zero(t, info.Limit)
}

func TestLimiter_CleanupBuckets(t *testing.T) {
	l, c := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 60, DefaultWindow: time.Minute})
	l.Allow("old", "/x", http.MethodGet)
	c.Advance(2 * time.Hour)
	l.Allow("fresh", "/x", http.MethodGet)

	l.cleanupBuckets(time.Hour)
	assert.Len(t, l.buckets, 1)
	assert.Contains(t, l.buckets, "fresh:default")
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 600, DefaultWindow: time.Minute, DefaultBurst: 50})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("client", "/x", http.MethodGet); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

func TestStop_Idempotent(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	l.Stop()
	l.Stop()
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	match := MatchEndpoint("/workflow/ingest", http.MethodPost, configs)
	require.NotNil(t, match)
	assert.Equal(t, "/workflow/ingest", match.Path)

	match = MatchEndpoint("/workflow/runs/user_1/resume", http.MethodPost, configs)
	require.NotNil(t, match)
	assert.Equal(t, "/workflow/runs/", match.Path)

	assert.Nil(t, MatchEndpoint("/workflow/ingest", http.MethodGet, configs))
	assert.Nil(t, MatchEndpoint("/users/1/jobs", http.MethodPost, configs))

	health := MatchEndpoint("/health", http.MethodGet, configs)
	require.NotNil(t, health)
	assert.Zero(t, health.Limit)
}
