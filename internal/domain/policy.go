package domain

import "github.com/shopspring/decimal"

// TaxPolicy holds every number the regime engine uses besides the input:
// per-regime deduction rules and bracket tables, surcharge tiers and the cess
// rate. It is loaded from policy.yaml or taken from the built-in defaults.
type TaxPolicy struct {
	Name           string                  `yaml:"name" json:"name"`
	Regimes        map[Regime]RegimePolicy `yaml:"regimes" json:"regimes"`
	SurchargeTiers []SurchargeTier         `yaml:"surcharge_tiers" json:"surcharge_tiers"`
	CessRate       decimal.Decimal         `yaml:"cess_rate" json:"cess_rate"`
}

// RegimePolicy contains the deduction rules and bracket table for one regime
type RegimePolicy struct {
	StandardDeduction decimal.Decimal                 `yaml:"standard_deduction" json:"standard_deduction"`
	Deductions        map[DeductionKind]DeductionRule `yaml:"deductions" json:"deductions"`
	Brackets          []Bracket                       `yaml:"brackets" json:"brackets"`
}

// DeductionRule caps a deduction category. A category missing from
// RegimePolicy.Deductions, or with Allowed false, is disallowed. A nil Cap
// means uncapped.
type DeductionRule struct {
	Allowed bool             `yaml:"allowed" json:"allowed"`
	Cap     *decimal.Decimal `yaml:"cap,omitempty" json:"cap,omitempty"`
}

// SurchargeTier applies Rate to base tax when taxable income strictly exceeds Threshold
type SurchargeTier struct {
	Threshold decimal.Decimal `yaml:"threshold" json:"threshold"`
	Rate      decimal.Decimal `yaml:"rate" json:"rate"`
}
