package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rgehrsitz/paytax/internal/calculation"
	"github.com/rgehrsitz/paytax/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Width(26)
	valueStyle = lipgloss.NewStyle().Width(18).Align(lipgloss.Right)
	totalStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// ConsoleFormatter renders a record as a boxed breakdown for a terminal
type ConsoleFormatter struct{}

func (ConsoleFormatter) Name() string { return "console" }

func (ConsoleFormatter) Format(rec *domain.CalculationRecord) ([]byte, error) {
	var body string
	switch {
	case rec.Result != nil:
		body = renderRegime(rec.Result)
	case rec.ScheduleResult != nil:
		body = renderSchedule(rec.ScheduleResult)
	default:
		return nil, fmt.Errorf("calculation %s has no result", rec.ID)
	}

	var header []string
	if rec.EmployeeID != "" {
		header = append(header, "Employee "+rec.EmployeeID)
	}
	if !rec.CalculatedAt.IsZero() {
		header = append(header, rec.CalculatedAt.Format("2006-01-02 15:04 MST"))
	}
	if rec.ID != "" && !rec.Saved {
		header = append(header, "not saved")
	}

	out := boxStyle.Render(body)
	if len(header) > 0 {
		out = mutedStyle.Render(strings.Join(header, " · ")) + "\n" + out
	}
	return []byte(out + "\n"), nil
}

func row(label string, amount decimal.Decimal) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(calculation.FormatINR(amount)))
}

func renderRegime(r *domain.CalculationResult) string {
	lines := []string{
		titleStyle.Render(r.Regime.Title() + " Regime"),
		row("Annual income", r.AnnualIncome),
		row("Standard deduction", r.StandardDeduction),
	}
	for _, ad := range r.AppliedDeductions {
		if ad.Claimed.IsZero() {
			continue
		}
		line := row(deductionTitle(ad.Kind), ad.Allowed)
		if !ad.Allowed.Equal(ad.Claimed) {
			line += mutedStyle.Render(" of " + calculation.FormatINR(ad.Claimed) + " claimed")
		}
		lines = append(lines, line)
	}
	lines = append(lines,
		row("Total deductions", r.TotalDeductions),
		row("Taxable income", r.TaxableIncome),
		"",
		renderBreakdown(r.Breakdown),
		"",
		row("Base tax", r.BaseTax),
		row("Surcharge", r.Surcharge),
		row("Cess", r.Cess),
		totalStyle.Render(row("Total tax", r.TotalTax)),
	)
	return strings.Join(lines, "\n")
}

func renderSchedule(r *domain.ScheduleResult) string {
	title := "Configured schedule"
	if r.ScheduleName != "" {
		title += " (" + r.ScheduleName + ")"
	}
	lines := []string{
		titleStyle.Render(title),
		row("Gross income", r.GrossIncome),
		row("Deductions", r.Deductions),
		row("Taxable income", r.TaxableIncome),
		"",
		renderBreakdown(r.Breakdown),
		"",
		totalStyle.Render(row("Tax amount", r.TaxAmount)),
	}
	return strings.Join(lines, "\n")
}

func renderBreakdown(breakdown []domain.BracketContribution) string {
	lines := []string{mutedStyle.Render("Bracket breakdown")}
	for _, c := range breakdown {
		label := fmt.Sprintf("%s @ %s%%", c.Label, c.RatePercent.String())
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(40).Render(label),
			valueStyle.Render(calculation.FormatINR(c.IncomeInBracket)),
			valueStyle.Render(calculation.FormatINR(c.TaxInBracket)),
		))
	}
	return strings.Join(lines, "\n")
}

func deductionTitle(kind domain.DeductionKind) string {
	switch kind {
	case domain.DeductionInvestment:
		return "Investments"
	case domain.DeductionInsurancePremium:
		return "Insurance premium"
	case domain.DeductionHomeLoanInterest:
		return "Home loan interest"
	case domain.DeductionEducationLoan:
		return "Education loan interest"
	default:
		return string(kind)
	}
}
