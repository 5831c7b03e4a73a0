// Package report aggregates calculation history into admin reports.
package report

import (
	"sort"
	"time"

	"github.com/rgehrsitz/paytax/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultWindowDays is the report window used when none is requested
const DefaultWindowDays = 30

// Summarize buckets records calculated within [from, to] by UTC calendar day.
// Days without calculations are omitted, so AvgDailyCalculations averages
// over active days only. Averages and totals are rounded to two decimals.
func Summarize(records []*domain.CalculationRecord, from, to time.Time) domain.Report {
	type bucket struct {
		count       int
		totalTax    decimal.Decimal
		totalIncome decimal.Decimal
	}

	buckets := make(map[time.Time]*bucket)
	distribution := make(map[string]int)
	totalTax := decimal.Zero
	total := 0

	for _, rec := range records {
		if rec == nil || rec.CalculatedAt.Before(from) || rec.CalculatedAt.After(to) {
			continue
		}

		at := rec.CalculatedAt.UTC()
		day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
		b, ok := buckets[day]
		if !ok {
			b = &bucket{totalTax: decimal.Zero, totalIncome: decimal.Zero}
			buckets[day] = b
		}

		gross, _, _, tax := rec.Summary()
		b.count++
		b.totalTax = b.totalTax.Add(tax)
		b.totalIncome = b.totalIncome.Add(gross)

		distribution[rec.RegimeLabel()]++
		totalTax = totalTax.Add(tax)
		total++
	}

	days := make([]time.Time, 0, len(buckets))
	for day := range buckets {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	daily := make([]domain.DailySummary, 0, len(days))
	for _, day := range days {
		b := buckets[day]
		n := decimal.NewFromInt(int64(b.count))
		daily = append(daily, domain.DailySummary{
			Date:      day,
			Count:     b.count,
			AvgTax:    b.totalTax.Div(n).Round(2),
			TotalTax:  b.totalTax.Round(2),
			AvgIncome: b.totalIncome.Div(n).Round(2),
		})
	}

	stats := domain.SummaryStats{
		TotalCalculations:    total,
		TotalTaxCollected:    totalTax.Round(2),
		AvgDailyCalculations: decimal.Zero,
		AvgTaxPerCalculation: decimal.Zero,
	}
	if len(daily) > 0 {
		stats.AvgDailyCalculations = decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(int64(len(daily)))).Round(2)
	}
	if total > 0 {
		stats.AvgTaxPerCalculation = totalTax.Div(decimal.NewFromInt(int64(total))).Round(2)
	}

	return domain.Report{
		From:               from,
		To:                 to,
		Daily:              daily,
		Stats:              stats,
		RegimeDistribution: distribution,
	}
}

// Window returns the [now-days, now] range used for a report. Non-positive
// days fall back to DefaultWindowDays.
func Window(now time.Time, days int) (from, to time.Time) {
	if days <= 0 {
		days = DefaultWindowDays
	}
	return now.AddDate(0, 0, -days), now
}
