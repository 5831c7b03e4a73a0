package output

import (
	"encoding/json"

	"github.com/rgehrsitz/paytax/internal/domain"
)

// JSONFormatter renders a record as JSON
type JSONFormatter struct {
	Pretty bool
}

func (JSONFormatter) Name() string { return "json" }

func (f JSONFormatter) Format(rec *domain.CalculationRecord) ([]byte, error) {
	return f.marshal(rec)
}

// FormatHistory renders a list of records as a JSON array
func (f JSONFormatter) FormatHistory(records []*domain.CalculationRecord) ([]byte, error) {
	if records == nil {
		records = []*domain.CalculationRecord{}
	}
	return f.marshal(records)
}

func (f JSONFormatter) marshal(v any) ([]byte, error) {
	if f.Pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// FormatReport renders a tenant report as JSON
func (f JSONFormatter) FormatReport(r domain.Report) ([]byte, error) {
	return f.marshal(r)
}
