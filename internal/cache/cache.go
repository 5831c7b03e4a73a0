package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rgehrsitz/paytax/internal/domain"
)

// New creates a new cache based on configuration.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory":
		return NewLRUCache(cfg.LocalMaxSize), nil
	case "redis":
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// ScheduleKey is the cache key of a tenant's active bracket schedule
const ScheduleKey = "schedule:active"

// GetSchedule reads a cached schedule snapshot. A miss returns nil, nil.
func GetSchedule(ctx context.Context, c domain.Cache, tenantID string) (*domain.BracketSchedule, error) {
	data, err := c.Get(ctx, tenantID, ScheduleKey)
	if err != nil || data == nil {
		return nil, err
	}

	var schedule domain.BracketSchedule
	if err := json.Unmarshal(data, &schedule); err != nil {
		return nil, fmt.Errorf("decode cached schedule: %w", err)
	}
	return &schedule, nil
}

// SetSchedule caches a schedule snapshot for ttl
func SetSchedule(ctx context.Context, c domain.Cache, tenantID string, schedule *domain.BracketSchedule, ttl time.Duration) error {
	data, err := json.Marshal(schedule)
	if err != nil {
		return err
	}
	return c.Set(ctx, tenantID, ScheduleKey, data, ttl)
}

// InvalidateSchedule drops a tenant's cached schedule
func InvalidateSchedule(ctx context.Context, c domain.Cache, tenantID string) error {
	return c.Delete(ctx, tenantID, ScheduleKey)
}
