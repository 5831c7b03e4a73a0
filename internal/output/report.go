package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rgehrsitz/paytax/internal/calculation"
	"github.com/rgehrsitz/paytax/internal/domain"
)

// FormatReportConsole renders an admin report for a terminal
func FormatReportConsole(r domain.Report) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Calculations %s to %s", r.From.Format("2006-01-02"), r.To.Format("2006-01-02"))))
	b.WriteString("\n\n")

	cell := lipgloss.NewStyle().Width(16).Align(lipgloss.Right)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(12).Render("Date"),
		cell.Render("Count"), cell.Render("Avg tax"), cell.Render("Total tax"), cell.Render("Avg income")))
	b.WriteString("\n")
	for _, day := range r.Daily {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(12).Render(day.Date.Format("2006-01-02")),
			cell.Render(fmt.Sprintf("%d", day.Count)),
			cell.Render(calculation.FormatINR(day.AvgTax)),
			cell.Render(calculation.FormatINR(day.TotalTax)),
			cell.Render(calculation.FormatINR(day.AvgIncome))))
		b.WriteString("\n")
	}
	if len(r.Daily) == 0 {
		b.WriteString(mutedStyle.Render("No calculations in this period"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s%d\n", labelStyle.Render("Total calculations"), r.Stats.TotalCalculations))
	b.WriteString(labelStyle.Render("Total tax collected") + calculation.FormatINR(r.Stats.TotalTaxCollected) + "\n")
	b.WriteString(labelStyle.Render("Avg calculations / day") + r.Stats.AvgDailyCalculations.StringFixed(2) + "\n")
	b.WriteString(labelStyle.Render("Avg tax / calculation") + calculation.FormatINR(r.Stats.AvgTaxPerCalculation) + "\n")

	if len(r.RegimeDistribution) > 0 {
		keys := make([]string, 0, len(r.RegimeDistribution))
		for k := range r.RegimeDistribution {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s %d", k, r.RegimeDistribution[k]))
		}
		b.WriteString(labelStyle.Render("By regime") + strings.Join(parts, ", ") + "\n")
	}

	return b.String()
}
