package calculation

import (
	"github.com/rgehrsitz/paytax/internal/domain"
	"github.com/shopspring/decimal"
)

// TAX POLICY DEFAULTS:
//
// 1. Old regime: standard deduction 50,000; investment capped at 1,50,000,
//    insurance premium at 25,000, home loan interest at 2,00,000; education
//    loan interest uncapped.
//
// 2. New regime: no standard deduction and no itemized deductions. Claimed
//    amounts are zeroed, not rejected.
//
// 3. Surcharge on base tax: 15% above 1 crore, 10% above 50 lakh taxable.
//    Only the highest tier applies.
//
// 4. Health and education cess: 4% of base tax plus surcharge.
//
// The regime tables are fixed and independent of the admin-managed schedule
// used by ConfigurableScheduleEngine. The two can drift apart.

func bounded(min, max, rate int64) domain.Bracket {
	return domain.Bracket{
		MinIncome:   decimal.NewFromInt(min),
		MaxIncome:   domain.DecimalPtr(decimal.NewFromInt(max)),
		RatePercent: decimal.NewFromInt(rate),
	}
}

func unbounded(min, rate int64) domain.Bracket {
	return domain.Bracket{
		MinIncome:   decimal.NewFromInt(min),
		RatePercent: decimal.NewFromInt(rate),
	}
}

// OldRegimeBrackets returns the Old regime table
func OldRegimeBrackets() []domain.Bracket {
	return []domain.Bracket{
		bounded(0, 250000, 0),
		bounded(250000, 500000, 5),
		bounded(500000, 1000000, 20),
		unbounded(1000000, 30),
	}
}

// NewRegimeBrackets returns the New regime table
func NewRegimeBrackets() []domain.Bracket {
	return []domain.Bracket{
		bounded(0, 300000, 0),
		bounded(300000, 600000, 5),
		bounded(600000, 900000, 10),
		bounded(900000, 1200000, 15),
		bounded(1200000, 1500000, 20),
		unbounded(1500000, 30),
	}
}

// DefaultPolicy returns the built-in tax policy
func DefaultPolicy() domain.TaxPolicy {
	return domain.TaxPolicy{
		Name: "default",
		Regimes: map[domain.Regime]domain.RegimePolicy{
			domain.RegimeOld: {
				StandardDeduction: decimal.NewFromInt(50000),
				Deductions: map[domain.DeductionKind]domain.DeductionRule{
					domain.DeductionInvestment:       {Allowed: true, Cap: domain.DecimalPtr(decimal.NewFromInt(150000))},
					domain.DeductionInsurancePremium: {Allowed: true, Cap: domain.DecimalPtr(decimal.NewFromInt(25000))},
					domain.DeductionHomeLoanInterest: {Allowed: true, Cap: domain.DecimalPtr(decimal.NewFromInt(200000))},
					domain.DeductionEducationLoan:    {Allowed: true},
				},
				Brackets: OldRegimeBrackets(),
			},
			domain.RegimeNew: {
				StandardDeduction: decimal.Zero,
				Deductions:        map[domain.DeductionKind]domain.DeductionRule{},
				Brackets:          NewRegimeBrackets(),
			},
		},
		SurchargeTiers: []domain.SurchargeTier{
			{Threshold: decimal.NewFromInt(5000000), Rate: decimal.NewFromFloat(0.10)},
			{Threshold: decimal.NewFromInt(10000000), Rate: decimal.NewFromFloat(0.15)},
		},
		CessRate: decimal.NewFromFloat(0.04),
	}
}

// DefaultSchedule returns the schedule seeded for a tenant that has not
// configured any tax rules.
func DefaultSchedule() domain.BracketSchedule {
	return domain.BracketSchedule{
		Name: "default",
		Brackets: []domain.Bracket{
			withLabel(bounded(0, 250000, 0), "No tax up to ₹2.5L"),
			withLabel(bounded(250000, 500000, 5), "5% tax from ₹2.5L to ₹5L"),
			withLabel(bounded(500000, 1000000, 20), "20% tax from ₹5L to ₹10L"),
			withLabel(unbounded(1000000, 30), "30% tax above ₹10L"),
		},
	}
}

func withLabel(b domain.Bracket, label string) domain.Bracket {
	b.Label = label
	return b
}

// ValidatePolicy checks a policy for internal consistency: both regimes
// present with well-formed tables, non-negative deductions and caps,
// surcharge and cess rates within 0..1.
func ValidatePolicy(p domain.TaxPolicy) error {
	one := decimal.NewFromInt(1)
	for _, regime := range []domain.Regime{domain.RegimeOld, domain.RegimeNew} {
		rp, ok := p.Regimes[regime]
		if !ok {
			return &domain.ValidationError{Field: "regimes." + string(regime), Constraint: "is required"}
		}
		if rp.StandardDeduction.IsNegative() {
			return &domain.ValidationError{Field: "regimes." + string(regime) + ".standard_deduction", Constraint: "must be non-negative", Value: rp.StandardDeduction.String()}
		}
		for kind, rule := range rp.Deductions {
			if rule.Cap != nil && rule.Cap.IsNegative() {
				return &domain.ValidationError{Field: "regimes." + string(regime) + ".deductions." + string(kind) + ".cap", Constraint: "must be non-negative", Value: rule.Cap.String()}
			}
		}
		if err := ValidateBrackets(rp.Brackets); err != nil {
			return err
		}
	}
	for i, tier := range p.SurchargeTiers {
		if tier.Threshold.IsNegative() {
			return &domain.ValidationError{Field: "surcharge_tiers.threshold", Constraint: "must be non-negative", Value: tier.Threshold.String()}
		}
		if tier.Rate.IsNegative() || tier.Rate.GreaterThan(one) {
			return &domain.ValidationError{Field: "surcharge_tiers.rate", Constraint: "must be between 0 and 1", Value: tier.Rate.String()}
		}
		for _, other := range p.SurchargeTiers[:i] {
			if other.Threshold.Equal(tier.Threshold) {
				return &domain.ValidationError{Field: "surcharge_tiers.threshold", Constraint: "must be unique", Value: tier.Threshold.String()}
			}
		}
	}
	if p.CessRate.IsNegative() || p.CessRate.GreaterThan(one) {
		return &domain.ValidationError{Field: "cess_rate", Constraint: "must be between 0 and 1", Value: p.CessRate.String()}
	}
	return nil
}
