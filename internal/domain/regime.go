package domain

import (
	"fmt"
	"strings"
)

// Regime selects the rule set used for a calculation
type Regime string

const (
	// RegimeOld permits itemized deductions and a standard deduction
	RegimeOld Regime = "old"
	// RegimeNew has lower rates but no itemized deductions
	RegimeNew Regime = "new"
)

// ParseRegime parses a regime name case-insensitively. An empty value selects
// the Old regime.
func ParseRegime(s string) (Regime, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "old":
		return RegimeOld, nil
	case "new":
		return RegimeNew, nil
	default:
		return "", &ValidationError{Field: "regime", Constraint: "must be one of old, new", Value: s}
	}
}

// Valid reports whether r is a known regime
func (r Regime) Valid() bool {
	return r == RegimeOld || r == RegimeNew
}

// Title returns the display name ("Old" / "New")
func (r Regime) Title() string {
	switch r {
	case RegimeOld:
		return "Old"
	case RegimeNew:
		return "New"
	default:
		return fmt.Sprintf("Unknown(%s)", string(r))
	}
}
