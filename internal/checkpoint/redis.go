package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces checkpoint keys in a shared Redis.
const DefaultKeyPrefix = "career_navigator:checkpoint:"

// RedisOption configures a Redis KV.
type RedisOption func(*Redis)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// WithTTL expires checkpoints after d. Zero keeps them forever.
func WithTTL(d time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = d }
}

// Redis stores checkpoints as plain string values. The caller owns the
// client lifecycle.
type Redis struct {
	client goredis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedis wraps a Redis client.
func NewRedis(client goredis.Cmdable, opts ...RedisOption) *Redis {
	r := &Redis{client: client, prefix: DefaultKeyPrefix}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Dial parses a redis:// URL and returns a connected KV.
func Dial(ctx context.Context, url string, opts ...RedisOption) (*Redis, error) {
	options, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("checkpoint/redis: parse url: %w", err)
	}
	client := goredis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("checkpoint/redis: ping: %w", err)
	}
	return NewRedis(client, opts...), nil
}

func (r *Redis) key(k string) string { return r.prefix + k }

// Get returns the value for key, or nil, nil when absent.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("checkpoint/redis: get %s: %w", key, err)
	}
	return v, nil
}

// Set stores value under key.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("checkpoint/redis: set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("checkpoint/redis: delete %s: %w", key, err)
	}
	return nil
}

// Ping verifies the Redis connection is alive.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client when it supports closing.
func (r *Redis) Close() error {
	if c, ok := r.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
