package calculation

import (
	"strings"

	"github.com/rgehrsitz/paytax/internal/domain"
	"github.com/shopspring/decimal"
)

// FormatINR formats an amount with a rupee sign and Indian digit grouping
// (lakh/crore): 1234567 -> ₹12,34,567. Fractional amounts keep two decimals.
func FormatINR(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	var whole, frac string
	if amount.Equal(amount.Truncate(0)) {
		whole = amount.StringFixed(0)
	} else {
		fixed := amount.StringFixed(2)
		dot := strings.IndexByte(fixed, '.')
		whole, frac = fixed[:dot], fixed[dot:]
	}

	return sign + "₹" + groupIndian(whole) + frac
}

// groupIndian inserts commas after the last three digits and then every two
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(groups, ",") + "," + tail
}

// BracketLabel returns the bracket's own label or one derived from its bounds,
// e.g. "₹2,50,001 - ₹5,00,000" or "Above ₹10,00,000".
func BracketLabel(b domain.Bracket) string {
	if b.Label != "" {
		return b.Label
	}
	if b.Unbounded() {
		return "Above " + FormatINR(b.MinIncome)
	}
	lower := b.MinIncome
	if lower.IsPositive() && lower.Equal(lower.Truncate(0)) {
		lower = lower.Add(decimal.NewFromInt(1))
	}
	return FormatINR(lower) + " - " + FormatINR(*b.MaxIncome)
}
