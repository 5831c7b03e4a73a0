package domain

import "fmt"

// ValidationError reports a rejected input field. Field and Constraint are
// stable enough to render a user-facing message.
type ValidationError struct {
	Field      string
	Constraint string
	Value      string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("validation failed: %s %s", e.Field, e.Constraint)
	}
	return fmt.Sprintf("validation failed: %s %s (got %q)", e.Field, e.Constraint, e.Value)
}

// ScheduleError reports a bracket schedule that cannot be walked. It points at
// a configuration defect upstream and is never recovered from.
type ScheduleError struct {
	Reason string
}

func (e *ScheduleError) Error() string {
	return "invalid bracket schedule: " + e.Reason
}
