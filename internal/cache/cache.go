// Package cache stores serialized catalog snapshots with a TTL.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("key not found in cache")
	ErrInvalidKey = errors.New("invalid cache key")
)

// Cache is implemented by Memory and Redis.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns ErrNotFound for missing or expired keys.
	Get(ctx context.Context, key string) ([]byte, error)

	Delete(ctx context.Context, keys ...string) error

	Close() error
}

const DefaultTTL = 10 * time.Minute
