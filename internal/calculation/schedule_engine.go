package calculation

import (
	"github.com/rgehrsitz/paytax/internal/domain"
	"github.com/shopspring/decimal"
)

// ConfigurableScheduleEngine is the admin-facing calculator: a single flat
// walk over a tenant's configured schedule with no regime, surcharge or cess.
type ConfigurableScheduleEngine struct{}

// NewConfigurableScheduleEngine creates a schedule engine
func NewConfigurableScheduleEngine() *ConfigurableScheduleEngine {
	return &ConfigurableScheduleEngine{}
}

// Compute taxes max(0, gross - deductions) over schedule. An empty schedule
// yields a ScheduleError.
func (e *ConfigurableScheduleEngine) Compute(input domain.ScheduleCalculationInput, schedule domain.BracketSchedule) (*domain.ScheduleResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	taxable := input.GrossIncome.Sub(input.Deductions)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}

	tax, breakdown, err := WalkBrackets(taxable, schedule.Brackets)
	if err != nil {
		return nil, err
	}

	return &domain.ScheduleResult{
		ScheduleName:  schedule.Name,
		GrossIncome:   input.GrossIncome,
		Deductions:    input.Deductions,
		TaxableIncome: taxable,
		TaxAmount:     tax,
		Breakdown:     breakdown,
	}, nil
}
