package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Store on top of a Redis-compatible server. The hosted
// Upstash offering is the intended deployment target (the endpoint URL and
// access token map onto the redis URL and password), but any Redis works.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the Redis instance at rawURL ("redis://" or
// "rediss://"). A non-empty token overrides the password embedded in the
// URL, which lets deployments keep the endpoint and the credential in
// separate settings.
func NewRedis(rawURL, token string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("kv: invalid redis url: %w", err)
	}
	if token != "" {
		opts.Password = token
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

// Ping verifies connectivity. Used by startup and the health endpoint.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Get returns the value at key, mapping redis.Nil to ErrNotFound.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("kv: get %s: %w", key, err)
	}
	return v, nil
}

// Set writes value with the given expiry. ttl <= 0 persists without expiry.
func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("kv: set %s: %w", key, err)
	}
	return nil
}

// PushCapped prepends value, trims to max entries, and refreshes expiry,
// pipelined into a single round trip.
func (r *Redis) PushCapped(ctx context.Context, key, value string, max int64, ttl time.Duration) error {
	if max < 1 {
		max = 1
	}
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, value)
	pipe.LTrim(ctx, key, 0, max-1)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("kv: push %s: %w", key, err)
	}
	return nil
}

// Range returns list entries newest first. A missing key is an empty list.
func (r *Redis) Range(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := r.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("kv: range %s: %w", key, err)
	}
	return vals, nil
}
