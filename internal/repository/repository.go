// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rgehrsitz/paytax/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// timeLayout is fixed-width so TEXT ordering matches chronological ordering
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// SaveCalculation stores a calculation record with tenant isolation.
func (r *SQLRepository) SaveCalculation(ctx context.Context, tenantID string, rec *domain.CalculationRecord) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("%w: calculation id is required", ErrInvalidInput)
	}

	var input, result any
	switch rec.Kind {
	case domain.KindRegime:
		input, result = rec.Input, rec.Result
	case domain.KindSchedule:
		input, result = rec.ScheduleInput, rec.ScheduleResult
	default:
		return fmt.Errorf("%w: unknown calculation kind %q", ErrInvalidInput, rec.Kind)
	}
	if input == nil || result == nil {
		return fmt.Errorf("%w: %s calculation is missing its input or result", ErrInvalidInput, rec.Kind)
	}

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to encode input: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	gross, deductions, taxable, tax := rec.Summary()

	query := `
		INSERT INTO calculations (
			id, tenant_id, employee_id, kind, regime,
			gross_income, deductions, taxable_income, tax_amount,
			input, result, calculated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		rec.ID, tenantID, rec.EmployeeID, string(rec.Kind), rec.RegimeLabel(),
		gross.String(), deductions.String(), taxable.String(), tax.String(),
		string(inputJSON), string(resultJSON), formatTime(rec.CalculatedAt),
	)
	return err
}

const calculationColumns = `id, tenant_id, employee_id, kind, input, result, calculated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCalculation(row rowScanner) (*domain.CalculationRecord, error) {
	var rec domain.CalculationRecord
	var kind, input, result, calculatedAt string

	if err := row.Scan(&rec.ID, &rec.TenantID, &rec.EmployeeID, &kind, &input, &result, &calculatedAt); err != nil {
		return nil, err
	}

	rec.Kind = domain.CalculationKind(kind)
	rec.Saved = true

	var err error
	if rec.CalculatedAt, err = parseTime(calculatedAt); err != nil {
		return nil, fmt.Errorf("calculation %s: bad timestamp: %w", rec.ID, err)
	}

	switch rec.Kind {
	case domain.KindRegime:
		rec.Input = &domain.CalculationInput{}
		rec.Result = &domain.CalculationResult{}
		err = decodePair(input, rec.Input, result, rec.Result)
	case domain.KindSchedule:
		rec.ScheduleInput = &domain.ScheduleCalculationInput{}
		rec.ScheduleResult = &domain.ScheduleResult{}
		err = decodePair(input, rec.ScheduleInput, result, rec.ScheduleResult)
	default:
		err = fmt.Errorf("unknown kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("calculation %s: %w", rec.ID, err)
	}

	return &rec, nil
}

func decodePair(input string, inputDst any, result string, resultDst any) error {
	if err := json.Unmarshal([]byte(input), inputDst); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	if err := json.Unmarshal([]byte(result), resultDst); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// GetCalculation retrieves a calculation by ID with tenant isolation.
func (r *SQLRepository) GetCalculation(ctx context.Context, tenantID string, id string) (*domain.CalculationRecord, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + calculationColumns + ` FROM calculations WHERE tenant_id = ? AND id = ?`

	rec, err := scanCalculation(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListCalculations retrieves calculations matching filter, newest first.
func (r *SQLRepository) ListCalculations(ctx context.Context, tenantID string, filter domain.CalculationFilter) ([]*domain.CalculationRecord, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	var where []string
	args := []any{tenantID}
	where = append(where, "tenant_id = ?")

	if filter.EmployeeID != "" {
		where = append(where, "employee_id = ?")
		args = append(args, filter.EmployeeID)
	}
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Regime != "" {
		where = append(where, "regime = ?")
		args = append(args, string(filter.Regime))
	}
	if !filter.From.IsZero() {
		where = append(where, "calculated_at >= ?")
		args = append(args, formatTime(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "calculated_at <= ?")
		args = append(args, formatTime(filter.To))
	}

	query := `SELECT ` + calculationColumns + ` FROM calculations WHERE ` +
		strings.Join(where, " AND ") +
		` ORDER BY calculated_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.CalculationRecord
	for rows.Next() {
		rec, err := scanCalculation(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// CreateTaxRule stores a new tax rule with tenant isolation. CreatedAt and
// UpdatedAt default to now when unset.
func (r *SQLRepository) CreateTaxRule(ctx context.Context, tenantID string, rule *domain.TaxRule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("%w: tax rule id is required", ErrInvalidInput)
	}

	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	if rule.UpdatedAt.IsZero() {
		rule.UpdatedAt = rule.CreatedAt
	}
	rule.TenantID = tenantID

	query := `
		INSERT INTO tax_rules (
			id, tenant_id, min_income, max_income, rate_percent, label, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID,
		rule.MinIncome.String(), nullableDecimal(rule.MaxIncome), rule.RatePercent.String(),
		rule.Label, boolToInt(rule.Active),
		formatTime(rule.CreatedAt), formatTime(rule.UpdatedAt),
	)
	return err
}

// UpdateTaxRule overwrites a tax rule's bracket and active flag.
func (r *SQLRepository) UpdateTaxRule(ctx context.Context, tenantID string, rule *domain.TaxRule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("%w: tax rule id is required", ErrInvalidInput)
	}

	if rule.UpdatedAt.IsZero() {
		rule.UpdatedAt = time.Now().UTC()
	}

	query := `
		UPDATE tax_rules
		SET min_income = ?, max_income = ?, rate_percent = ?, label = ?, active = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.MinIncome.String(), nullableDecimal(rule.MaxIncome), rule.RatePercent.String(),
		rule.Label, boolToInt(rule.Active), formatTime(rule.UpdatedAt),
		tenantID, rule.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

const taxRuleColumns = `id, tenant_id, min_income, max_income, rate_percent, label, active, created_at, updated_at`

func scanTaxRule(row rowScanner) (*domain.TaxRule, error) {
	var rule domain.TaxRule
	var minIncome, ratePercent, createdAt, updatedAt string
	var maxIncome, label sql.NullString
	var active int

	if err := row.Scan(&rule.ID, &rule.TenantID, &minIncome, &maxIncome, &ratePercent, &label, &active, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if rule.MinIncome, err = decimal.NewFromString(minIncome); err != nil {
		return nil, fmt.Errorf("tax rule %s: bad min_income: %w", rule.ID, err)
	}
	if maxIncome.Valid {
		maxIncomeValue, err := decimal.NewFromString(maxIncome.String)
		if err != nil {
			return nil, fmt.Errorf("tax rule %s: bad max_income: %w", rule.ID, err)
		}
		rule.MaxIncome = &maxIncomeValue
	}
	if rule.RatePercent, err = decimal.NewFromString(ratePercent); err != nil {
		return nil, fmt.Errorf("tax rule %s: bad rate_percent: %w", rule.ID, err)
	}
	if rule.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("tax rule %s: bad created_at: %w", rule.ID, err)
	}
	if rule.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("tax rule %s: bad updated_at: %w", rule.ID, err)
	}
	rule.Label = label.String
	rule.Active = active == 1

	return &rule, nil
}

// GetTaxRule retrieves a tax rule by ID, active or not, with tenant isolation.
func (r *SQLRepository) GetTaxRule(ctx context.Context, tenantID string, id string) (*domain.TaxRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + taxRuleColumns + ` FROM tax_rules WHERE tenant_id = ? AND id = ?`

	rule, err := scanTaxRule(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// ListTaxRules retrieves a tenant's tax rules ordered by ascending
// min_income. Amounts are TEXT, so ordering happens after decoding.
func (r *SQLRepository) ListTaxRules(ctx context.Context, tenantID string, activeOnly bool) ([]*domain.TaxRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + taxRuleColumns + ` FROM tax_rules WHERE tenant_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.TaxRule
	for rows.Next() {
		rule, err := scanTaxRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(rules, func(i, j int) bool {
		if !rules[i].MinIncome.Equal(rules[j].MinIncome) {
			return rules[i].MinIncome.LessThan(rules[j].MinIncome)
		}
		return rules[i].ID < rules[j].ID
	})

	return rules, nil
}

// AppendAudit stores an audit entry with tenant isolation.
func (r *SQLRepository) AppendAudit(ctx context.Context, tenantID string, entry *domain.AuditEntry) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if entry == nil || entry.ID == "" {
		return fmt.Errorf("%w: audit entry id is required", ErrInvalidInput)
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.TenantID = tenantID

	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("audit entry %s: marshal details: %w", entry.ID, err)
	}

	query := `
		INSERT INTO audit_log (id, tenant_id, actor_id, action, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		entry.ID, tenantID, entry.ActorID, entry.Action, string(details), formatTime(entry.CreatedAt),
	)
	return err
}

// ListAudit retrieves the most recent audit entries, newest first.
func (r *SQLRepository) ListAudit(ctx context.Context, tenantID string, limit int) ([]*domain.AuditEntry, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, tenant_id, actor_id, action, details, created_at
		FROM audit_log
		WHERE tenant_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var details sql.NullString
		var createdAt string

		if err := rows.Scan(&e.ID, &e.TenantID, &e.ActorID, &e.Action, &details, &createdAt); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("audit entry %s: bad created_at: %w", e.ID, err)
		}
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &e.Details); err != nil {
				return nil, fmt.Errorf("audit entry %s: unmarshal details: %w", e.ID, err)
			}
		}

		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, strconv.Itoa(n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

func nullableDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
