// Package cache provides the read-through key-value layer behind the
// session cache: a mutex-guarded in-process implementation for
// single-instance deployments and a Redis-backed one for shared use.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheUnavailable indicates the cache backend is unavailable
	ErrCacheUnavailable = errors.New("cache: backend unavailable")

	// ErrInvalidValue indicates the cached value cannot be parsed
	ErrInvalidValue = errors.New("cache: invalid value")
)

// Cache defines the primitive operations for a TTL key-value cache.
// T is the type of value stored (e.g. a profile snapshot struct).
type Cache[T any] interface {
	// Get retrieves a value. Returns ErrCacheMiss if the key does not
	// exist or has expired.
	Get(ctx context.Context, key string) (T, error)

	// Set stores a value with TTL
	Set(ctx context.Context, key string, value T, ttl time.Duration) error

	// Delete removes a key; absent keys are not an error
	Delete(ctx context.Context, key string) error

	// Close releases backend resources
	Close() error

	// Health checks if the backend is reachable
	Health(ctx context.Context) error
}

// GetWithFetch is a cache-aside helper for any Cache implementation. On
// miss it calls fetchFunc, stores the result, and returns it. No stampede
// protection: concurrent misses may fetch more than once.
func GetWithFetch[T any](
	ctx context.Context,
	c Cache[T],
	key string,
	ttl time.Duration,
	fetchFunc func(ctx context.Context, key string) (T, error),
) (T, error) {
	if value, err := c.Get(ctx, key); err == nil {
		return value, nil
	}

	value, err := fetchFunc(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}

	_ = c.Set(ctx, key, value, ttl)
	return value, nil
}
