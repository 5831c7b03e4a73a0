package config

import (
	"fmt"
	"os"

	"github.com/rgehrsitz/paytax/internal/calculation"
	"github.com/rgehrsitz/paytax/internal/domain"
	"gopkg.in/yaml.v3"
)

// InputParser handles parsing of policy, schedule and calculation input files
type InputParser struct{}

// NewInputParser creates a new input parser
func NewInputParser() *InputParser {
	return &InputParser{}
}

// LoadPolicy loads a tax policy from a YAML or JSON file and validates it
func (ip *InputParser) LoadPolicy(filename string) (*domain.TaxPolicy, error) {
	var policy domain.TaxPolicy
	if err := ip.decodeFile(filename, &policy); err != nil {
		return nil, err
	}

	if err := calculation.ValidatePolicy(policy); err != nil {
		return nil, fmt.Errorf("policy validation failed: %w", err)
	}

	return &policy, nil
}

// LoadPolicyOrDefault loads filename, or returns the built-in policy when
// filename is empty.
func (ip *InputParser) LoadPolicyOrDefault(filename string) (*domain.TaxPolicy, error) {
	if filename == "" {
		policy := calculation.DefaultPolicy()
		return &policy, nil
	}
	return ip.LoadPolicy(filename)
}

// LoadSchedule loads a bracket schedule from file. The schedule must be
// contiguous, start at zero and end with an unbounded bracket.
func (ip *InputParser) LoadSchedule(filename string) (*domain.BracketSchedule, error) {
	var schedule domain.BracketSchedule
	if err := ip.decodeFile(filename, &schedule); err != nil {
		return nil, err
	}

	if err := calculation.ValidateBrackets(schedule.Brackets); err != nil {
		return nil, fmt.Errorf("schedule validation failed: %w", err)
	}

	return &schedule, nil
}

// LoadCalculationInput loads an employee calculation input. A missing regime
// defaults to old.
func (ip *InputParser) LoadCalculationInput(filename string) (*domain.CalculationInput, error) {
	var input domain.CalculationInput
	if err := ip.decodeFile(filename, &input); err != nil {
		return nil, err
	}

	if input.Regime == "" {
		input.Regime = domain.RegimeOld
	}
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("input validation failed: %w", err)
	}

	return &input, nil
}

// LoadScheduleInput loads a gross income / deductions pair for the schedule calculator
func (ip *InputParser) LoadScheduleInput(filename string) (*domain.ScheduleCalculationInput, error) {
	var input domain.ScheduleCalculationInput
	if err := ip.decodeFile(filename, &input); err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("input validation failed: %w", err)
	}

	return &input, nil
}

// decodeFile reads filename as YAML. JSON is a subset of YAML, so .json
// files decode through the same path.
func (ip *InputParser) decodeFile(filename string, out any) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}
