package domain

import (
	"context"
	"time"
)

// KVStore is the interface to the shared key-value store backing all
// cross-request state: velocity counters, device/location history,
// behavior profiles, blocklists, reputation caches, and short-lived
// assessment copies.
//
// The store is the only shared mutable resource in the system; callers
// rely on its atomicity primitives (Increment, Set with TTL) instead
// of in-process locking.
type KVStore interface {
	// Get retrieves a value. Returns nil, nil if the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with an expiration. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Increment atomically increments a counter and returns the new
	// value. The TTL is applied when the counter is created.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Exists reports whether a key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys enumerates keys matching a glob pattern (e.g. "fraud:block:*").
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// StoreConfig holds configuration for KV store initialization.
type StoreConfig struct {
	// Type is the store type: "memory" or "redis"
	Type string

	// Memory store settings (dev/test)
	MemoryMaxKeys int

	// Redis settings (production)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}
