package output

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/rgehrsitz/paytax/internal/domain"
)

// HistoryHeader is the column layout of history exports
var HistoryHeader = []string{"Date", "Employee", "Regime", "Gross Income", "Deductions", "Taxable Income", "Tax Amount"}

// CSVFormatter renders a record's bracket breakdown, one row per bracket,
// followed by a total row.
type CSVFormatter struct{}

func (CSVFormatter) Name() string { return "csv" }

func (CSVFormatter) Format(rec *domain.CalculationRecord) ([]byte, error) {
	var breakdown []domain.BracketContribution
	switch {
	case rec.Result != nil:
		breakdown = rec.Result.Breakdown
	case rec.ScheduleResult != nil:
		breakdown = rec.ScheduleResult.Breakdown
	default:
		return nil, fmt.Errorf("calculation %s has no result", rec.ID)
	}

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write([]string{"Bracket", "Rate Percent", "Income In Bracket", "Tax In Bracket"}); err != nil {
		return nil, err
	}
	for _, c := range breakdown {
		if err := w.Write([]string{c.Label, c.RatePercent.String(), c.IncomeInBracket.StringFixed(2), c.TaxInBracket.StringFixed(2)}); err != nil {
			return nil, err
		}
	}

	_, _, taxable, tax := rec.Summary()
	if err := w.Write([]string{"Total", "", taxable.StringFixed(2), tax.StringFixed(2)}); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// HistoryCSV renders records in the history export layout. Amounts are
// plain with two decimals.
func HistoryCSV(records []*domain.CalculationRecord) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(HistoryHeader); err != nil {
		return nil, err
	}
	for _, rec := range records {
		gross, deductions, taxable, tax := rec.Summary()
		row := []string{
			rec.CalculatedAt.UTC().Format("2006-01-02 15:04:05"),
			rec.EmployeeID,
			rec.RegimeLabel(),
			gross.StringFixed(2),
			deductions.StringFixed(2),
			taxable.StringFixed(2),
			tax.StringFixed(2),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
