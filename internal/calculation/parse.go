package calculation

import (
	"strings"

	"github.com/rgehrsitz/paytax/internal/domain"
	"github.com/shopspring/decimal"
)

var currencyNoise = strings.NewReplacer("₹", "", "Rs.", "", "INR", "", ",", "", " ", "", "\u00a0", "")

// MaxFractionDigits is the finest precision accepted for an input amount
const MaxFractionDigits = 2

// ParseAmount parses a currency-formatted amount such as "₹1,50,000" or
// "12,500.50". Blank input is zero. Anything else that is not a plain decimal
// number fails with a ValidationError naming field. Exponent notation is
// rejected so a short input cannot expand into millions of digits.
func ParseAmount(field, raw string) (decimal.Decimal, error) {
	cleaned := currencyNoise.Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return decimal.Zero, nil
	}
	if strings.ContainsAny(cleaned, "eE") {
		return decimal.Zero, &domain.ValidationError{Field: field, Constraint: "out of range", Value: raw}
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, &domain.ValidationError{Field: field, Constraint: "must be numeric", Value: raw}
	}
	if err := domain.CheckAmount(field, d); err != nil {
		return decimal.Zero, err
	}
	if !d.Equal(d.Round(MaxFractionDigits)) {
		return decimal.Zero, &domain.ValidationError{Field: field, Constraint: "must have at most 2 decimal places", Value: raw}
	}
	return d, nil
}

// RawInput is an unparsed calculation request as it arrives from a form,
// command-line flags or a JSON body with string fields.
type RawInput struct {
	MonthlyIncome         string
	AnnualBonus           string
	Investment            string
	InsurancePremium      string
	HomeLoanInterest      string
	EducationLoanInterest string
	Regime                string
}

// ParseInput converts raw fields into a validated CalculationInput
func ParseInput(raw RawInput) (domain.CalculationInput, error) {
	var in domain.CalculationInput
	var err error

	regime, err := domain.ParseRegime(raw.Regime)
	if err != nil {
		return in, err
	}
	in.Regime = regime

	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"monthly_income", raw.MonthlyIncome, &in.MonthlyIncome},
		{"annual_bonus", raw.AnnualBonus, &in.AnnualBonus},
		{"deductions.investment", raw.Investment, &in.Deductions.Investment},
		{"deductions.insurance_premium", raw.InsurancePremium, &in.Deductions.InsurancePremium},
		{"deductions.home_loan_interest", raw.HomeLoanInterest, &in.Deductions.HomeLoanInterest},
		{"deductions.education_loan_interest", raw.EducationLoanInterest, &in.Deductions.EducationLoanInterest},
	}
	for _, f := range fields {
		if *f.dst, err = ParseAmount(f.name, f.raw); err != nil {
			return in, err
		}
	}

	return in, in.Validate()
}
