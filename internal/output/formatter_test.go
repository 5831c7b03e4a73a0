package output

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rgehrsitz/paytax/internal/calculation"
	"github.com/rgehrsitz/paytax/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2026, 10, 1, 10, 30, 0, 0, time.UTC)

func regimeRecord(t *testing.T) *domain.CalculationRecord {
	t.Helper()
	input := domain.CalculationInput{
		MonthlyIncome: decimal.NewFromInt(100000),
		AnnualBonus:   decimal.NewFromInt(200000),
		Regime:        domain.RegimeOld,
		Deductions:    domain.DeductionInputs{Investment: decimal.NewFromInt(500000)},
	}
	result, err := calculation.NewRegimeTableEngine().Compute(input)
	require.NoError(t, err)
	return &domain.CalculationRecord{
		ID: "calc-1", EmployeeID: "emp-42", Kind: domain.KindRegime,
		Input: &input, Result: result, CalculatedAt: at, Saved: true,
	}
}

func scheduleRecord(t *testing.T) *domain.CalculationRecord {
	t.Helper()
	input := domain.ScheduleCalculationInput{GrossIncome: decimal.NewFromInt(800000), Deductions: decimal.NewFromInt(50000)}
	result, err := calculation.NewConfigurableScheduleEngine().Compute(input, calculation.DefaultSchedule())
	require.NoError(t, err)
	return &domain.CalculationRecord{
		ID: "calc-2", EmployeeID: "emp-7", Kind: domain.KindSchedule,
		ScheduleInput: &input, ScheduleResult: result, CalculatedAt: at.Add(time.Hour), Saved: true,
	}
}

func TestGetFormatterByName(t *testing.T) {
	for _, name := range []string{"console", "json", "csv"} {
		f := GetFormatterByName(name)
		require.NotNil(t, f, name)
		assert.Equal(t, name, f.Name())
	}
	assert.Nil(t, GetFormatterByName("html"))
	assert.Equal(t, []string{"console", "csv", "json"}, AvailableFormatters())
}

func TestConsoleFormatter(t *testing.T) {
	out, err := ConsoleFormatter{}.Format(regimeRecord(t))
	require.NoError(t, err)
	text := string(out)

	assert.Contains(t, text, "Old Regime")
	assert.Contains(t, text, "emp-42")
	assert.Contains(t, text, "₹14,00,000")
	assert.Contains(t, text, "of ₹5,00,000 claimed", "capped deductions show the claim")
	assert.Contains(t, text, "Total tax")
	assert.NotContains(t, text, "not saved")

	sched, err := ConsoleFormatter{}.Format(scheduleRecord(t))
	require.NoError(t, err)
	assert.Contains(t, string(sched), "Configured schedule (default)")
	assert.Contains(t, string(sched), "₹62,500")

	_, err = ConsoleFormatter{}.Format(&domain.CalculationRecord{ID: "empty"})
	assert.Error(t, err)
}

func TestConsoleFormatter_UnsavedRecord(t *testing.T) {
	rec := regimeRecord(t)
	rec.Saved = false

	out, err := ConsoleFormatter{}.Format(rec)
	require.NoError(t, err)
	assert.Contains(t, string(out), "not saved")
}

func TestJSONFormatter(t *testing.T) {
	rec := regimeRecord(t)

	out, err := JSONFormatter{}.Format(rec)
	require.NoError(t, err)

	var decoded domain.CalculationRecord
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "emp-42", decoded.EmployeeID)
	assert.True(t, decoded.Result.TotalTax.Equal(rec.Result.TotalTax))

	history, err := JSONFormatter{Pretty: true}.FormatHistory(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(history))
}

func TestCSVFormatter(t *testing.T) {
	out, err := CSVFormatter{}.Format(regimeRecord(t))
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	require.NoError(t, err)
	// header + 4 brackets + total
	require.Len(t, rows, 6)
	assert.Equal(t, "Bracket", rows[0][0])
	assert.Equal(t, "Total", rows[5][0])
	// 1400000 - 50000 - 150000
	assert.Equal(t, "1200000.00", rows[5][2])
}

func TestHistoryCSV(t *testing.T) {
	out, err := HistoryCSV([]*domain.CalculationRecord{regimeRecord(t), scheduleRecord(t)})
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, HistoryHeader, rows[0])
	assert.Equal(t, []string{"2026-10-01 10:30:00", "emp-42", "old", "1400000.00", "200000.00", "1200000.00", rows[1][6]}, rows[1])
	assert.Equal(t, []string{"2026-10-01 11:30:00", "emp-7", "schedule", "800000.00", "50000.00", "750000.00", "62500.00"}, rows[2])
}

func TestFormatReportConsole(t *testing.T) {
	r := domain.Report{
		From: at.AddDate(0, 0, -30),
		To:   at,
		Daily: []domain.DailySummary{
			{Date: at, Count: 2, AvgTax: decimal.NewFromInt(1000), TotalTax: decimal.NewFromInt(2000), AvgIncome: decimal.NewFromInt(500000)},
		},
		Stats: domain.SummaryStats{
			TotalCalculations:    2,
			TotalTaxCollected:    decimal.NewFromInt(2000),
			AvgDailyCalculations: decimal.NewFromInt(2),
			AvgTaxPerCalculation: decimal.NewFromInt(1000),
		},
		RegimeDistribution: map[string]int{"old": 1, "new": 1},
	}

	text := FormatReportConsole(r)
	assert.Contains(t, text, "2026-10-01")
	assert.Contains(t, text, "₹5,00,000")
	assert.Contains(t, text, "new 1, old 1")

	empty := FormatReportConsole(domain.Report{})
	assert.Contains(t, empty, "No calculations in this period")
}
