package calculation

import (
	"errors"
	"testing"

	"github.com/rgehrsitz/paytax/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", "0"},
		{"   ", "0"},
		{"150000", "150000"},
		{"₹1,50,000", "150000"},
		{"12,500.50", "12500.5"},
		{"Rs. 2 50 000", "250000"},
		{"INR 99", "99"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmount("monthly_income", tt.raw)
			require.NoError(t, err)
			assertDecimal(t, tt.want, got)
		})
	}
}

func TestParseAmount_NonNumeric(t *testing.T) {
	_, err := ParseAmount("annual_bonus", "lots")

	var vErr *domain.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "annual_bonus", vErr.Field)
	assert.Equal(t, "must be numeric", vErr.Constraint)
	assert.Equal(t, "lots", vErr.Value)
}

func TestParseInput(t *testing.T) {
	in, err := ParseInput(RawInput{
		MonthlyIncome: "₹50,000",
		AnnualBonus:   "1,00,000",
		Investment:    "150000",
		Regime:        "OLD",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RegimeOld, in.Regime)
	assertDecimal(t, "50000", in.MonthlyIncome)
	assertDecimal(t, "100000", in.AnnualBonus)
	assertDecimal(t, "150000", in.Deductions.Investment)
	assertDecimal(t, "0", in.Deductions.HomeLoanInterest)
}

func TestParseInput_Errors(t *testing.T) {
	tests := []struct {
		name  string
		raw   RawInput
		field string
	}{
		{"bad regime", RawInput{MonthlyIncome: "1", Regime: "flat"}, "regime"},
		{"garbage deduction", RawInput{MonthlyIncome: "1", HomeLoanInterest: "n/a"}, "deductions.home_loan_interest"},
		{"negative income", RawInput{MonthlyIncome: "-100"}, "monthly_income"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInput(tt.raw)
			var vErr *domain.ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestFormatINR(t *testing.T) {
	assert.Equal(t, "₹0", FormatINR(dec("0")))
	assert.Equal(t, "₹999", FormatINR(dec("999")))
	assert.Equal(t, "₹1,000", FormatINR(dec("1000")))
	assert.Equal(t, "₹2,50,000", FormatINR(dec("250000")))
	assert.Equal(t, "₹1,00,00,000", FormatINR(dec("10000000")))
	assert.Equal(t, "₹12,34,567.89", FormatINR(dec("1234567.891")))
	assert.Equal(t, "-₹5,000.50", FormatINR(dec("-5000.5")))
}

func TestParseAmount_Bounds(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		constraint string
	}{
		{"exponent", "1e3000000", "out of range"},
		{"huge exponent", "1e30000000", "out of range"},
		{"upper case exponent", "5E2", "out of range"},
		{"too large", "1000000000000000", "out of range"},
		{"too many digits", "123456789012345678901234567890", "out of range"},
		{"too precise", "100.125", "must have at most 2 decimal places"},
		{"tiny fraction", "0.00000000000001", "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAmount("monthly_income", tt.raw)
			var vErr *domain.ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, "monthly_income", vErr.Field)
			assert.Equal(t, tt.constraint, vErr.Constraint)
		})
	}
}

func TestParseAmount_AtBounds(t *testing.T) {
	got, err := ParseAmount("annual_bonus", "999999999999999.99")
	require.NoError(t, err)
	assertDecimal(t, "999999999999999.99", got)

	got, err = ParseAmount("annual_bonus", "12.500")
	require.NoError(t, err)
	assertDecimal(t, "12.5", got)
}

func TestParseInput_RejectsExponentIncome(t *testing.T) {
	_, err := ParseInput(RawInput{MonthlyIncome: "1e3000000"})

	var vErr *domain.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "monthly_income", vErr.Field)
	assert.Equal(t, "out of range", vErr.Constraint)
}
