package calculation

import (
	"github.com/rgehrsitz/paytax/internal/domain"
	"github.com/shopspring/decimal"
)

// RegimeTableEngine is the employee-facing calculator. It walks the fixed
// per-regime bracket tables from its policy and layers surcharge and cess on
// top. It holds no mutable state and is safe for concurrent use.
type RegimeTableEngine struct {
	Policy domain.TaxPolicy
}

// NewRegimeTableEngine creates an engine using the built-in policy
func NewRegimeTableEngine() *RegimeTableEngine {
	return &RegimeTableEngine{Policy: DefaultPolicy()}
}

// NewRegimeTableEngineWithPolicy creates an engine with a configured policy
func NewRegimeTableEngineWithPolicy(policy domain.TaxPolicy) *RegimeTableEngine {
	return &RegimeTableEngine{Policy: policy}
}

// Compute calculates the tax liability for input. It fails with a
// ValidationError for negative fields or an unknown regime. Taxable income is
// floored at zero rather than rejected.
func (e *RegimeTableEngine) Compute(input domain.CalculationInput) (*domain.CalculationResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	rp, ok := e.Policy.Regimes[input.Regime]
	if !ok {
		return nil, &domain.ScheduleError{Reason: "no bracket table for regime " + string(input.Regime)}
	}

	annualIncome := input.MonthlyIncome.Mul(decimal.NewFromInt(12)).Add(input.AnnualBonus)

	applied, itemized := ResolveDeductions(rp, input.Deductions)
	totalDeductions := rp.StandardDeduction.Add(itemized)

	taxableIncome := annualIncome.Sub(totalDeductions)
	if taxableIncome.IsNegative() {
		taxableIncome = decimal.Zero
	}

	baseTax, breakdown, err := WalkBrackets(taxableIncome, rp.Brackets)
	if err != nil {
		return nil, err
	}

	surcharge := Surcharge(e.Policy.SurchargeTiers, taxableIncome, baseTax)
	cess := baseTax.Add(surcharge).Mul(e.Policy.CessRate)

	return &domain.CalculationResult{
		Regime:            input.Regime,
		AnnualIncome:      annualIncome,
		StandardDeduction: rp.StandardDeduction,
		AppliedDeductions: applied,
		TotalDeductions:   totalDeductions,
		TaxableIncome:     taxableIncome,
		BaseTax:           baseTax,
		Surcharge:         surcharge,
		Cess:              cess,
		TotalTax:          baseTax.Add(surcharge).Add(cess),
		Breakdown:         breakdown,
	}, nil
}

// ResolveDeductions caps each claimed itemized deduction by the regime's rule
// and returns the per-category outcome with the allowed total. Disallowed
// categories contribute zero.
func ResolveDeductions(rp domain.RegimePolicy, claimed domain.DeductionInputs) ([]domain.AppliedDeduction, decimal.Decimal) {
	total := decimal.Zero
	applied := make([]domain.AppliedDeduction, 0, len(domain.DeductionKinds))

	for _, kind := range domain.DeductionKinds {
		amount := claimed.Amount(kind)
		allowed := decimal.Zero
		if rule, ok := rp.Deductions[kind]; ok && rule.Allowed {
			allowed = amount
			if rule.Cap != nil {
				allowed = decimal.Min(amount, *rule.Cap)
			}
		}
		total = total.Add(allowed)
		applied = append(applied, domain.AppliedDeduction{Kind: kind, Claimed: amount, Allowed: allowed})
	}

	return applied, total
}

// Surcharge applies the rate of the highest tier whose threshold taxable
// income strictly exceeds. Tiers are not cumulative.
func Surcharge(tiers []domain.SurchargeTier, taxableIncome, baseTax decimal.Decimal) decimal.Decimal {
	var selected *domain.SurchargeTier
	for i := range tiers {
		tier := &tiers[i]
		if !taxableIncome.GreaterThan(tier.Threshold) {
			continue
		}
		if selected == nil || tier.Threshold.GreaterThan(selected.Threshold) {
			selected = tier
		}
	}
	if selected == nil {
		return decimal.Zero
	}
	return baseTax.Mul(selected.Rate)
}
