// Package output renders calculation records, history exports and reports.
package output

import (
	"sort"

	"github.com/rgehrsitz/paytax/internal/domain"
)

// Formatter renders a single calculation record
type Formatter interface {
	Name() string
	Format(rec *domain.CalculationRecord) ([]byte, error)
}

var formatters = map[string]Formatter{
	"console": ConsoleFormatter{},
	"json":    JSONFormatter{Pretty: true},
	"csv":     CSVFormatter{},
}

// GetFormatterByName returns the formatter registered under name, or nil
func GetFormatterByName(name string) Formatter {
	return formatters[name]
}

// AvailableFormatters lists the registered formatter names, sorted
func AvailableFormatters() []string {
	names := make([]string, 0, len(formatters))
	for name := range formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
