// Package payroll ties the tax engines to persistence: it runs calculations
// for employees, records them per tenant, and manages a tenant's bracket
// schedule with an audit trail.
package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rgehrsitz/paytax/internal/calculation"
	"github.com/rgehrsitz/paytax/internal/domain"
	"github.com/rgehrsitz/paytax/internal/report"
	"github.com/rgehrsitz/paytax/internal/repository"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a calculation or bracket does not exist for the tenant
var ErrNotFound = repository.ErrNotFound

// Audit actions
const (
	ActionBracketCreate     = "bracket.create"
	ActionBracketUpdate     = "bracket.update"
	ActionBracketDeactivate = "bracket.deactivate"
	ActionBracketActivate   = "bracket.activate"
)

// Service runs and records payroll tax calculations
type Service struct {
	repo           domain.Repository
	engine         *calculation.RegimeTableEngine
	scheduleEngine *calculation.ConfigurableScheduleEngine
	schedules      *ScheduleSource
	logger         Logger

	now   func() time.Time
	newID func() string
}

// NewService creates a service. cache may be nil, in which case every
// schedule lookup reads the repository.
func NewService(repo domain.Repository, c domain.Cache, policy domain.TaxPolicy, cacheTTL time.Duration) *Service {
	return &Service{
		repo:           repo,
		engine:         calculation.NewRegimeTableEngineWithPolicy(policy),
		scheduleEngine: calculation.NewConfigurableScheduleEngine(),
		schedules:      NewScheduleSource(repo, c, cacheTTL),
		logger:         NopLogger{},
		now:            func() time.Time { return time.Now().UTC() },
		newID:          uuid.NewString,
	}
}

// SetLogger sets the logger for the service and its schedule source
func (s *Service) SetLogger(l Logger) {
	if l == nil {
		l = NopLogger{}
	}
	s.logger = l
	s.schedules.logger = l
}

// Schedules exposes the service's schedule source
func (s *Service) Schedules() *ScheduleSource {
	return s.schedules
}

func requireIDs(tenantID, employeeID string) error {
	if tenantID == "" {
		return &domain.ValidationError{Field: "tenant_id", Constraint: "is required"}
	}
	if employeeID == "" {
		return &domain.ValidationError{Field: "employee_id", Constraint: "is required"}
	}
	return nil
}

// Calculate runs the regime engine for an employee and records the result.
// A failure to persist does not discard the computed result: the record is
// returned with Saved false.
func (s *Service) Calculate(ctx context.Context, tenantID, employeeID string, input domain.CalculationInput) (*domain.CalculationRecord, error) {
	if err := requireIDs(tenantID, employeeID); err != nil {
		return nil, err
	}

	result, err := s.engine.Compute(input)
	if err != nil {
		return nil, err
	}

	rec := &domain.CalculationRecord{
		ID:           s.newID(),
		TenantID:     tenantID,
		EmployeeID:   employeeID,
		Kind:         domain.KindRegime,
		Input:        &input,
		Result:       result,
		CalculatedAt: s.now(),
	}
	s.save(ctx, rec)

	s.logger.Debugf("tenant %s employee %s: %s regime taxable %s tax %s",
		tenantID, employeeID, result.Regime, result.TaxableIncome, result.TotalTax)
	return rec, nil
}

// CalculateWithSchedule runs the tenant's configured schedule for an employee
// and records the result like Calculate.
func (s *Service) CalculateWithSchedule(ctx context.Context, tenantID, employeeID string, input domain.ScheduleCalculationInput) (*domain.CalculationRecord, error) {
	if err := requireIDs(tenantID, employeeID); err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	schedule, err := s.schedules.Active(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	result, err := s.scheduleEngine.Compute(input, schedule)
	if err != nil {
		return nil, err
	}

	rec := &domain.CalculationRecord{
		ID:             s.newID(),
		TenantID:       tenantID,
		EmployeeID:     employeeID,
		Kind:           domain.KindSchedule,
		ScheduleInput:  &input,
		ScheduleResult: result,
		CalculatedAt:   s.now(),
	}
	s.save(ctx, rec)

	return rec, nil
}

func (s *Service) save(ctx context.Context, rec *domain.CalculationRecord) {
	if err := s.repo.SaveCalculation(ctx, rec.TenantID, rec); err != nil {
		s.logger.Errorf("calculation %s completed but could not be saved: %v", rec.ID, err)
		rec.Saved = false
		return
	}
	rec.Saved = true
}

// History lists a tenant's calculations, newest first
func (s *Service) History(ctx context.Context, tenantID string, filter domain.CalculationFilter) ([]*domain.CalculationRecord, error) {
	records, err := s.repo.ListCalculations(ctx, tenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list calculations: %w", err)
	}
	return records, nil
}

// Get returns a single calculation record
func (s *Service) Get(ctx context.Context, tenantID, id string) (*domain.CalculationRecord, error) {
	rec, err := s.repo.GetCalculation(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("calculation %s: %w", id, err)
	}
	return rec, nil
}

// Report summarizes the tenant's calculations made within [from, to]
func (s *Service) Report(ctx context.Context, tenantID string, from, to time.Time) (domain.Report, error) {
	records, err := s.repo.ListCalculations(ctx, tenantID, domain.CalculationFilter{From: from, To: to})
	if err != nil {
		return domain.Report{}, fmt.Errorf("failed to load calculations for report: %w", err)
	}
	return report.Summarize(records, from, to), nil
}

// ReportLastDays summarizes the last days days, ending now
func (s *Service) ReportLastDays(ctx context.Context, tenantID string, days int) (domain.Report, error) {
	from, to := report.Window(s.now(), days)
	return s.Report(ctx, tenantID, from, to)
}

// ListBrackets returns the tenant's tax rules ordered by min_income
func (s *Service) ListBrackets(ctx context.Context, tenantID string, activeOnly bool) ([]*domain.TaxRule, error) {
	rules, err := s.repo.ListTaxRules(ctx, tenantID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list tax rules: %w", err)
	}
	return rules, nil
}

// ValidateBracket checks a single bracket in isolation: non-negative lower
// bound, upper bound above it when present, rate within 0..100. Whether the
// tenant's rules still form a contiguous schedule is checked when the
// schedule is next loaded.
func ValidateBracket(b domain.Bracket) error {
	if err := domain.CheckAmount("min_income", b.MinIncome); err != nil {
		return err
	}
	if b.MaxIncome != nil {
		if err := domain.CheckAmount("max_income", *b.MaxIncome); err != nil {
			return err
		}
	}
	if b.MinIncome.IsNegative() {
		return &domain.ValidationError{Field: "min_income", Constraint: "must be non-negative", Value: b.MinIncome.String()}
	}
	if b.MaxIncome != nil && !b.MaxIncome.GreaterThan(b.MinIncome) {
		return &domain.ValidationError{Field: "max_income", Constraint: "must be greater than min_income", Value: b.MaxIncome.String()}
	}
	if b.RatePercent.IsNegative() || b.RatePercent.GreaterThan(decimal.NewFromInt(100)) {
		return &domain.ValidationError{Field: "rate_percent", Constraint: "must be between 0 and 100", Value: b.RatePercent.String()}
	}
	return nil
}

// AddBracket creates an active tax rule for the tenant
func (s *Service) AddBracket(ctx context.Context, tenantID, actorID string, b domain.Bracket) (*domain.TaxRule, error) {
	if err := ValidateBracket(b); err != nil {
		return nil, err
	}

	now := s.now()
	b.ID = s.newID()
	rule := &domain.TaxRule{
		Bracket:   b,
		TenantID:  tenantID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateTaxRule(ctx, tenantID, rule); err != nil {
		return nil, fmt.Errorf("failed to create tax rule: %w", err)
	}

	s.afterBracketChange(ctx, tenantID, actorID, ActionBracketCreate, rule)
	return rule, nil
}

// UpdateBracket replaces the bounds, rate and label of an existing rule
func (s *Service) UpdateBracket(ctx context.Context, tenantID, actorID, id string, b domain.Bracket) (*domain.TaxRule, error) {
	if err := ValidateBracket(b); err != nil {
		return nil, err
	}

	rule, err := s.repo.GetTaxRule(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("tax rule %s: %w", id, err)
	}

	b.ID = rule.ID
	rule.Bracket = b
	rule.UpdatedAt = s.now()
	if err := s.repo.UpdateTaxRule(ctx, tenantID, rule); err != nil {
		return nil, fmt.Errorf("failed to update tax rule %s: %w", id, err)
	}

	s.afterBracketChange(ctx, tenantID, actorID, ActionBracketUpdate, rule)
	return rule, nil
}

// DeactivateBracket removes a rule from the active schedule. Rules are never
// deleted.
func (s *Service) DeactivateBracket(ctx context.Context, tenantID, actorID, id string) (*domain.TaxRule, error) {
	return s.setBracketActive(ctx, tenantID, actorID, id, false)
}

// ActivateBracket returns a deactivated bracket to the tenant's schedule.
// The schedule is revalidated on the next calculation, not here.
func (s *Service) ActivateBracket(ctx context.Context, tenantID, actorID, id string) (*domain.TaxRule, error) {
	return s.setBracketActive(ctx, tenantID, actorID, id, true)
}

func (s *Service) setBracketActive(ctx context.Context, tenantID, actorID, id string, active bool) (*domain.TaxRule, error) {
	rule, err := s.repo.GetTaxRule(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("tax rule %s: %w", id, err)
	}

	action, verb := ActionBracketDeactivate, "deactivate"
	if active {
		action, verb = ActionBracketActivate, "activate"
	}

	rule.Active = active
	rule.UpdatedAt = s.now()
	if err := s.repo.UpdateTaxRule(ctx, tenantID, rule); err != nil {
		return nil, fmt.Errorf("failed to %s tax rule %s: %w", verb, id, err)
	}

	s.afterBracketChange(ctx, tenantID, actorID, action, rule)
	return rule, nil
}

// ActiveSchedule returns the schedule currently used for schedule calculations
func (s *Service) ActiveSchedule(ctx context.Context, tenantID string) (domain.BracketSchedule, error) {
	return s.schedules.Active(ctx, tenantID)
}

// AuditLog returns the tenant's most recent admin changes
func (s *Service) AuditLog(ctx context.Context, tenantID string, limit int) ([]*domain.AuditEntry, error) {
	entries, err := s.repo.ListAudit(ctx, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}
	return entries, nil
}

func (s *Service) afterBracketChange(ctx context.Context, tenantID, actorID, action string, rule *domain.TaxRule) {
	s.schedules.Invalidate(ctx, tenantID)

	details := map[string]any{
		"bracket_id":   rule.ID,
		"min_income":   rule.MinIncome.String(),
		"rate_percent": rule.RatePercent.String(),
		"active":       rule.Active,
	}
	if rule.MaxIncome != nil {
		details["max_income"] = rule.MaxIncome.String()
	}

	entry := &domain.AuditEntry{
		ID:        s.newID(),
		TenantID:  tenantID,
		ActorID:   actorID,
		Action:    action,
		Details:   details,
		CreatedAt: s.now(),
	}
	if err := s.repo.AppendAudit(ctx, tenantID, entry); err != nil {
		s.logger.Errorf("audit entry for %s on %s could not be saved: %v", action, rule.ID, err)
		return
	}
	s.logger.Infof("tenant %s: %s %s by %s", tenantID, action, rule.ID, actorID)
}

// SeedDefaultBrackets stores the default schedule as the tenant's rules so it
// can be edited bracket by bracket. Tenants that already have rules, active or
// not, are left untouched and get nil, nil.
func (s *Service) SeedDefaultBrackets(ctx context.Context, tenantID, actorID string) ([]*domain.TaxRule, error) {
	existing, err := s.repo.ListTaxRules(ctx, tenantID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list tax rules: %w", err)
	}
	if len(existing) > 0 {
		return nil, nil
	}

	var rules []*domain.TaxRule
	for _, b := range calculation.DefaultSchedule().Brackets {
		rule, err := s.AddBracket(ctx, tenantID, actorID, b)
		if err != nil {
			return rules, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
