package payroll

import (
	"context"
	"testing"
	"time"

	"github.com/rgehrsitz/paytax/internal/cache"
	"github.com/rgehrsitz/paytax/internal/calculation"
	"github.com/rgehrsitz/paytax/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// racingRepo runs afterRead once, after the rules have been read but before
// they are returned, to simulate an admin change landing mid-load.
type racingRepo struct {
	domain.Repository
	afterRead func()
}

func (r *racingRepo) ListTaxRules(ctx context.Context, tenantID string, activeOnly bool) ([]*domain.TaxRule, error) {
	rules, err := r.Repository.ListTaxRules(ctx, tenantID, activeOnly)
	if hook := r.afterRead; hook != nil {
		r.afterRead = nil
		hook()
	}
	return rules, err
}

func TestScheduleSource_StaleLoadIsNotCached(t *testing.T) {
	_, repo, _ := newTestService(t)
	ctx := context.Background()

	c := cache.NewLRUCache(10)
	racing := &racingRepo{Repository: repo}
	svc := NewService(racing, c, calculation.DefaultPolicy(), time.Minute)

	rule, err := svc.AddBracket(ctx, "tenant-1", "admin-1", domain.Bracket{MinIncome: d("0"), RatePercent: d("10")})
	require.NoError(t, err)

	racing.afterRead = func() {
		_, err := svc.UpdateBracket(ctx, "tenant-1", "admin-1", rule.ID, domain.Bracket{MinIncome: d("0"), RatePercent: d("20")})
		require.NoError(t, err)
	}

	stale, err := svc.ActiveSchedule(ctx, "tenant-1")
	require.NoError(t, err)
	assert.True(t, stale.Brackets[0].RatePercent.Equal(d("10")), "the in-flight load still sees the old rate")

	cached, err := cache.GetSchedule(ctx, c, "tenant-1")
	require.NoError(t, err)
	assert.Nil(t, cached, "a load overtaken by an invalidation must not be cached")

	fresh, err := svc.ActiveSchedule(ctx, "tenant-1")
	require.NoError(t, err)
	assert.True(t, fresh.Brackets[0].RatePercent.Equal(d("20")))
}

func TestScheduleSource_CachesUndisturbedLoad(t *testing.T) {
	_, repo, _ := newTestService(t)
	ctx := context.Background()

	c := cache.NewLRUCache(10)
	src := NewScheduleSource(repo, c, time.Minute)

	_, err := src.Active(ctx, "tenant-1")
	require.NoError(t, err)

	cached, err := cache.GetSchedule(ctx, c, "tenant-1")
	require.NoError(t, err)
	require.NotNil(t, cached)

	src.Invalidate(ctx, "tenant-1")
	cached, err = cache.GetSchedule(ctx, c, "tenant-1")
	require.NoError(t, err)
	assert.Nil(t, cached)
}
