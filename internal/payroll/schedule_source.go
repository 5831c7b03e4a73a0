package payroll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rgehrsitz/paytax/internal/cache"
	"github.com/rgehrsitz/paytax/internal/calculation"
	"github.com/rgehrsitz/paytax/internal/domain"
)

// ScheduleSource supplies a tenant's active bracket schedule as a read-only
// snapshot. Snapshots are cached per tenant; a tenant without rules gets the
// default schedule.
type ScheduleSource struct {
	repo   domain.Repository
	cache  domain.Cache
	ttl    time.Duration
	logger Logger

	// generations counts invalidations per tenant. A snapshot built while an
	// invalidation ran is stale and must not reach the cache. This only
	// orders writers within one process; replicas sharing Redis rely on ttl.
	mu          sync.Mutex
	generations map[string]uint64
}

// NewScheduleSource creates a schedule source. cache may be nil.
func NewScheduleSource(repo domain.Repository, c domain.Cache, ttl time.Duration) *ScheduleSource {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ScheduleSource{
		repo:        repo,
		cache:       c,
		ttl:         ttl,
		logger:      NopLogger{},
		generations: make(map[string]uint64),
	}
}

// Active returns the tenant's schedule. The shape is validated here, so a
// misconfigured tenant fails with a ScheduleError before any walk.
func (s *ScheduleSource) Active(ctx context.Context, tenantID string) (domain.BracketSchedule, error) {
	if s.cache != nil {
		cached, err := cache.GetSchedule(ctx, s.cache, tenantID)
		if err != nil {
			s.logger.Warnf("schedule cache read failed for tenant %s: %v", tenantID, err)
		} else if cached != nil {
			return *cached, nil
		}
	}

	gen := s.generation(tenantID)
	rules, err := s.repo.ListTaxRules(ctx, tenantID, true)
	if err != nil {
		return domain.BracketSchedule{}, fmt.Errorf("failed to load tax rules: %w", err)
	}

	schedule := domain.ScheduleFromRules(tenantID, rules)
	if len(schedule.Brackets) == 0 {
		s.logger.Debugf("tenant %s has no tax rules, using default schedule", tenantID)
		schedule = calculation.DefaultSchedule()
	}

	if err := calculation.ValidateBrackets(schedule.Brackets); err != nil {
		return domain.BracketSchedule{}, err
	}

	if s.cache != nil && s.generation(tenantID) == gen {
		if err := cache.SetSchedule(ctx, s.cache, tenantID, &schedule, s.ttl); err != nil {
			s.logger.Warnf("schedule cache write failed for tenant %s: %v", tenantID, err)
		}
		// an invalidation may have landed between the check and the write
		if s.generation(tenantID) != gen {
			s.dropCached(ctx, tenantID)
		}
	}

	return schedule, nil
}

func (s *ScheduleSource) generation(tenantID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[tenantID]
}

// Invalidate drops the tenant's cached snapshot
func (s *ScheduleSource) Invalidate(ctx context.Context, tenantID string) {
	s.mu.Lock()
	s.generations[tenantID]++
	s.mu.Unlock()

	if s.cache == nil {
		return
	}
	s.dropCached(ctx, tenantID)
}

func (s *ScheduleSource) dropCached(ctx context.Context, tenantID string) {
	if err := cache.InvalidateSchedule(ctx, s.cache, tenantID); err != nil {
		s.logger.Warnf("schedule cache invalidation failed for tenant %s: %v", tenantID, err)
	}
}
