// Package store provides KV store implementations for Harrier.
package store

import (
	"errors"
	"fmt"

	"github.com/opensource-finance/harrier/internal/domain"
)

// ErrClosed is returned by memory store operations after Close.
var ErrClosed = errors.New("store is closed")

// New creates a KV store based on configuration.
// Dev/test: in-process memory store. Production: Redis.
func New(cfg domain.StoreConfig) (domain.KVStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(cfg.MemoryMaxKeys), nil

	case "redis":
		return NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}
