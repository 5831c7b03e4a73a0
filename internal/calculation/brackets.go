package calculation

import (
	"github.com/rgehrsitz/paytax/internal/domain"
	"github.com/shopspring/decimal"
)

// WalkBrackets taxes taxableIncome progressively over brackets, which must be
// ascending and contiguous. Each bracket absorbs min(width, remaining) of the
// income; the unbounded bracket absorbs whatever is left. The lowest bracket
// is always recorded, even for zero income, and the walk stops once nothing
// remains, so the contributions sum to taxableIncome exactly.
//
// The schedule's shape is not re-validated here; only an empty schedule, a
// negative-width bracket, or a bounded top bracket that leaves income
// uncovered is reported as a ScheduleError.
func WalkBrackets(taxableIncome decimal.Decimal, brackets []domain.Bracket) (decimal.Decimal, []domain.BracketContribution, error) {
	if len(brackets) == 0 {
		return decimal.Zero, nil, &domain.ScheduleError{Reason: "schedule has no brackets"}
	}
	if taxableIncome.IsNegative() {
		return decimal.Zero, nil, &domain.ValidationError{
			Field:      "taxable_income",
			Constraint: "must be non-negative",
			Value:      taxableIncome.String(),
		}
	}

	tax := decimal.Zero
	remaining := taxableIncome
	breakdown := make([]domain.BracketContribution, 0, len(brackets))

	for i, bracket := range brackets {
		if i > 0 && !remaining.IsPositive() {
			break
		}

		incomeInBracket := remaining
		if !bracket.Unbounded() {
			width := bracket.Width()
			if width.IsNegative() {
				return decimal.Zero, nil, &domain.ScheduleError{
					Reason: "bracket " + BracketLabel(bracket) + " has max_income below min_income",
				}
			}
			incomeInBracket = decimal.Min(width, remaining)
		}

		taxInBracket := incomeInBracket.Mul(bracket.Rate())
		tax = tax.Add(taxInBracket)
		remaining = remaining.Sub(incomeInBracket)

		breakdown = append(breakdown, domain.BracketContribution{
			Label:           BracketLabel(bracket),
			RatePercent:     bracket.RatePercent,
			IncomeInBracket: incomeInBracket,
			TaxInBracket:    taxInBracket,
		})
	}

	if remaining.IsPositive() {
		return decimal.Zero, nil, &domain.ScheduleError{
			Reason: "schedule does not cover income above " + FormatINR(taxableIncome.Sub(remaining)),
		}
	}

	return tax, breakdown, nil
}

// ValidateBrackets checks the shape a schedule source must guarantee:
// non-empty, first bracket starting at zero, contiguous ascending bands,
// rates within 0..100, and an unbounded final bracket.
func ValidateBrackets(brackets []domain.Bracket) error {
	if len(brackets) == 0 {
		return &domain.ScheduleError{Reason: "schedule has no brackets"}
	}
	if !brackets[0].MinIncome.IsZero() {
		return &domain.ScheduleError{Reason: "first bracket must start at 0"}
	}

	hundred := decimal.NewFromInt(100)
	for i, b := range brackets {
		if b.RatePercent.IsNegative() || b.RatePercent.GreaterThan(hundred) {
			return &domain.ScheduleError{Reason: "bracket " + BracketLabel(b) + " rate must be between 0 and 100"}
		}
		last := i == len(brackets)-1
		if b.Unbounded() {
			if !last {
				return &domain.ScheduleError{Reason: "only the final bracket may be unbounded"}
			}
			continue
		}
		if last {
			return &domain.ScheduleError{Reason: "final bracket must be unbounded"}
		}
		if !b.MaxIncome.GreaterThan(b.MinIncome) {
			return &domain.ScheduleError{Reason: "bracket " + BracketLabel(b) + " must have max_income above min_income"}
		}
		if !brackets[i+1].MinIncome.Equal(*b.MaxIncome) {
			return &domain.ScheduleError{Reason: "bracket " + BracketLabel(brackets[i+1]) + " does not start where the previous one ends"}
		}
	}
	return nil
}
