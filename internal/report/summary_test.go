package report

import (
	"testing"
	"time"

	"github.com/rgehrsitz/paytax/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func regimeRec(at time.Time, regime domain.Regime, gross, tax string) *domain.CalculationRecord {
	return &domain.CalculationRecord{
		Kind:         domain.KindRegime,
		CalculatedAt: at,
		Result: &domain.CalculationResult{
			Regime:       regime,
			AnnualIncome: decimal.RequireFromString(gross),
			TotalTax:     decimal.RequireFromString(tax),
		},
	}
}

func scheduleRec(at time.Time, gross, tax string) *domain.CalculationRecord {
	return &domain.CalculationRecord{
		Kind:         domain.KindSchedule,
		CalculatedAt: at,
		ScheduleResult: &domain.ScheduleResult{
			GrossIncome: decimal.RequireFromString(gross),
			TaxAmount:   decimal.RequireFromString(tax),
		},
	}
}

func TestSummarize(t *testing.T) {
	day1 := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	day3 := time.Date(2026, 5, 3, 23, 59, 0, 0, time.UTC)
	from := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)

	records := []*domain.CalculationRecord{
		regimeRec(day3, domain.RegimeNew, "1000000", "62400"),
		regimeRec(day1, domain.RegimeOld, "400000", "5200"),
		regimeRec(day1.Add(time.Hour), domain.RegimeOld, "1450000", "241800"),
		scheduleRec(day1.Add(2*time.Hour), "800000", "62500"),
		regimeRec(to.Add(time.Hour), domain.RegimeOld, "1", "1"), // outside window
		nil,
	}

	r := Summarize(records, from, to)

	require.Len(t, r.Daily, 2)
	assert.True(t, r.Daily[0].Date.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 3, r.Daily[0].Count)
	assert.True(t, r.Daily[0].TotalTax.Equal(decimal.NewFromInt(309500)))
	// 309500 / 3
	assert.True(t, r.Daily[0].AvgTax.Equal(decimal.RequireFromString("103166.67")), "got %s", r.Daily[0].AvgTax)
	assert.True(t, r.Daily[0].AvgIncome.Equal(decimal.RequireFromString("883333.33")), "got %s", r.Daily[0].AvgIncome)
	assert.Equal(t, 1, r.Daily[1].Count)

	assert.Equal(t, 4, r.Stats.TotalCalculations)
	assert.True(t, r.Stats.TotalTaxCollected.Equal(decimal.NewFromInt(371900)))
	assert.True(t, r.Stats.AvgDailyCalculations.Equal(decimal.NewFromInt(2)))
	assert.True(t, r.Stats.AvgTaxPerCalculation.Equal(decimal.NewFromInt(92975)))

	assert.Equal(t, map[string]int{"old": 2, "new": 1, "schedule": 1}, r.RegimeDistribution)
}

func TestSummarize_Empty(t *testing.T) {
	r := Summarize(nil, time.Time{}, time.Now())

	assert.Empty(t, r.Daily)
	assert.Equal(t, 0, r.Stats.TotalCalculations)
	assert.True(t, r.Stats.AvgDailyCalculations.IsZero())
	assert.True(t, r.Stats.AvgTaxPerCalculation.IsZero())
	assert.NotNil(t, r.RegimeDistribution)
}

func TestWindow(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	from, to := Window(now, 7)
	assert.Equal(t, now, to)
	assert.Equal(t, time.Date(2026, 10, 10, 12, 0, 0, 0, time.UTC), from)

	from, _ = Window(now, 0)
	assert.Equal(t, now.AddDate(0, 0, -DefaultWindowDays), from)
}
