// Package cache wraps the Redis "fast cache" behind a small interface so the
// services and jobs that depend on it can be tested against an in-memory fake.
// The fast cache serves three roles: redirect-resolution cache, abuse-verdict
// cache, and the hash accumulator for pending click counts.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	customerrors "github.com/llamino/UrlShortener/internal/errors"
)

// Key namespaces used throughout the application. Every key the service
// writes lives under one of these, so a shared Redis can host other tenants.
const (
	// ResolutionKeyPrefix maps a short code to its destination URL.
	ResolutionKeyPrefix = "short_link_"

	// BlockedIPAllKeyPrefix caches a "blocked for every URL" verdict per IP.
	BlockedIPAllKeyPrefix = "blocked_ip_all_"

	// BlockedIPLinkKeyPrefix caches a per-destination block verdict,
	// completed as blocked_ip_link_<ip>_<url>.
	BlockedIPLinkKeyPrefix = "blocked_ip_link_"

	// ClickCountKey is the hash holding pending click increments, keyed by
	// compressed canonical URL.
	ClickCountKey = "shortlink_click_count"

	// ClickCountDrainKey is where the accumulator hash is renamed to at the
	// start of a reconciliation cycle, so concurrent increments land in a
	// fresh accumulator instead of being lost or double-counted.
	ClickCountDrainKey = "shortlink_click_count_draining"

	// RateLimitKeyPrefix namespaces the per-IP redirect rate-limit counters.
	RateLimitKeyPrefix = "ratelimit_redirect_"
)

// Cache is the interface the rest of the application programs against.
// Implementations must translate "key does not exist" into ErrCacheMiss so
// callers can distinguish a miss from an infrastructure failure.
type Cache interface {
	// Get returns the string value at key, or ErrCacheMiss.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key with the given TTL (0 means no expiry).
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Del removes a key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error

	// HIncrBy atomically increments a hash field, creating hash and field as
	// needed, and returns the new value.
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)

	// HGetAll returns all fields of a hash. A missing hash yields an empty
	// map, not an error.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// Rename atomically moves src to dst, replacing dst if present. A missing
	// src returns ErrCacheMiss.
	Rename(ctx context.Context, src, dst string) error

	// IncrWithTTL atomically increments an integer counter and, when this
	// increment created the key, starts its expiry window. Returns the new
	// count. Used by the fixed-window rate limiter.
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error
}

// RedisCache implements Cache on top of a go-redis client.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a RedisCache from connection settings.
func NewRedisCache(addr, password string, db int) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// NewRedisCacheFromClient wraps an existing client, letting callers reuse a
// connection they already manage.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", customerrors.ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis GET %s: %w", key, err)
	}
	return val, nil
}

func (r *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) Del(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis DEL %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	val, err := r.client.HIncrBy(ctx, key, field, delta).Result()
	if err != nil {
		return 0, fmt.Errorf("redis HINCRBY %s %s: %w", key, field, err)
	}
	return val, nil
}

func (r *RedisCache) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	val, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HGETALL %s: %w", key, err)
	}
	return val, nil
}

func (r *RedisCache) Rename(ctx context.Context, src, dst string) error {
	err := r.client.Rename(ctx, src, dst).Err()
	if err == nil {
		return nil
	}
	// RENAME on a missing source fails with "no such key"; surface that the
	// same way Get does so callers can treat an empty accumulator as a no-op.
	if errors.Is(err, redis.Nil) || err.Error() == "ERR no such key" {
		return customerrors.ErrCacheMiss
	}
	return fmt.Errorf("redis RENAME %s -> %s: %w", src, dst, err)
}

func (r *RedisCache) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis INCR %s: %w", key, err)
	}
	// First increment in the window owns setting the expiry.
	if count == 1 {
		if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
			return count, fmt.Errorf("redis EXPIRE %s: %w", key, err)
		}
	}
	return count, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis PING: %w", err)
	}
	return nil
}
