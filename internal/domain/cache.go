package domain

import (
	"context"
	"time"
)

// Cache is a tenant-scoped byte cache used for bracket schedule snapshots.
type Cache interface {
	// Get returns nil, nil when the key is absent or expired.
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, tenantID string, key string) error

	Ping(ctx context.Context) error
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string `env:"TYPE" envDefault:"memory"`

	// In-process LRU settings
	LocalMaxSize int           `env:"LOCAL_MAX_SIZE" envDefault:"1000"`
	TTL          time.Duration `env:"TTL" envDefault:"5m"`

	// Redis settings
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`
}
