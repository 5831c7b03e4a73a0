package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bracket is a contiguous income band taxed at a single marginal rate.
// A nil MaxIncome marks the unbounded top bracket.
type Bracket struct {
	ID          string           `yaml:"id,omitempty" json:"id,omitempty"`
	MinIncome   decimal.Decimal  `yaml:"min_income" json:"min_income"`
	MaxIncome   *decimal.Decimal `yaml:"max_income,omitempty" json:"max_income,omitempty"`
	RatePercent decimal.Decimal  `yaml:"rate_percent" json:"rate_percent"`
	Label       string           `yaml:"label,omitempty" json:"label,omitempty"`
}

// Unbounded reports whether the bracket has no upper limit
func (b Bracket) Unbounded() bool {
	return b.MaxIncome == nil
}

// Width returns MaxIncome - MinIncome for a bounded bracket and zero otherwise
func (b Bracket) Width() decimal.Decimal {
	if b.MaxIncome == nil {
		return decimal.Zero
	}
	return b.MaxIncome.Sub(b.MinIncome)
}

// Rate returns the marginal rate as a fraction (5% -> 0.05)
func (b Bracket) Rate() decimal.Decimal {
	return b.RatePercent.Div(decimal.NewFromInt(100))
}

// BracketSchedule is an ordered set of brackets, ascending by MinIncome
type BracketSchedule struct {
	Name     string    `yaml:"name,omitempty" json:"name,omitempty"`
	Brackets []Bracket `yaml:"brackets" json:"brackets"`
}

// TaxRule is an admin-managed bracket as stored for a tenant. Deleting a rule
// only deactivates it.
type TaxRule struct {
	Bracket   `yaml:",inline"`
	TenantID  string    `json:"tenant_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScheduleFromRules builds a schedule from active rules, keeping their order
func ScheduleFromRules(name string, rules []*TaxRule) BracketSchedule {
	schedule := BracketSchedule{Name: name}
	for _, r := range rules {
		if r == nil || !r.Active {
			continue
		}
		schedule.Brackets = append(schedule.Brackets, r.Bracket)
	}
	return schedule
}

// DecimalPtr returns a pointer to d
func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
