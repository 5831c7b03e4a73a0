package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailySummary aggregates the calculations made on one calendar day (UTC)
type DailySummary struct {
	Date      time.Time       `json:"date"`
	Count     int             `json:"count"`
	AvgTax    decimal.Decimal `json:"avg_tax"`
	TotalTax  decimal.Decimal `json:"total_tax"`
	AvgIncome decimal.Decimal `json:"avg_income"`
}

// SummaryStats are the headline figures over a report window
type SummaryStats struct {
	TotalCalculations    int             `json:"total_calculations"`
	TotalTaxCollected    decimal.Decimal `json:"total_tax_collected"`
	AvgDailyCalculations decimal.Decimal `json:"avg_daily_calculations"`
	AvgTaxPerCalculation decimal.Decimal `json:"avg_tax_per_calculation"`
}

// Report is the admin aggregate report over [From, To]
type Report struct {
	From               time.Time      `json:"from"`
	To                 time.Time      `json:"to"`
	Daily              []DailySummary `json:"daily"`
	Stats              SummaryStats   `json:"stats"`
	RegimeDistribution map[string]int `json:"regime_distribution"`
}
