package domain

import (
	"context"
	"time"
)

// Repository persists calculation history, tax rules and the admin audit log.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Calculation history
	SaveCalculation(ctx context.Context, tenantID string, rec *CalculationRecord) error
	GetCalculation(ctx context.Context, tenantID string, id string) (*CalculationRecord, error)
	ListCalculations(ctx context.Context, tenantID string, filter CalculationFilter) ([]*CalculationRecord, error)

	// Admin-managed tax rules
	CreateTaxRule(ctx context.Context, tenantID string, rule *TaxRule) error
	UpdateTaxRule(ctx context.Context, tenantID string, rule *TaxRule) error
	GetTaxRule(ctx context.Context, tenantID string, id string) (*TaxRule, error)
	ListTaxRules(ctx context.Context, tenantID string, activeOnly bool) ([]*TaxRule, error)

	// Audit log
	AppendAudit(ctx context.Context, tenantID string, entry *AuditEntry) error
	ListAudit(ctx context.Context, tenantID string, limit int) ([]*AuditEntry, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CalculationFilter narrows ListCalculations. Zero values mean "any".
// Results are ordered newest first.
type CalculationFilter struct {
	EmployeeID string
	Kind       CalculationKind
	Regime     Regime
	From       time.Time
	To         time.Time
	Limit      int
}

// AuditEntry records an admin change
type AuditEntry struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	ActorID   string         `json:"actor_id"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `env:"DRIVER" envDefault:"sqlite"`

	// SQLite specific
	SQLitePath string `env:"SQLITE_PATH" envDefault:"./data/paytax.db"`

	// PostgreSQL specific
	PostgresHost     string `env:"PG_HOST"`
	PostgresPort     int    `env:"PG_PORT"`
	PostgresUser     string `env:"PG_USER"`
	PostgresPassword string `env:"PG_PASSWORD"`
	PostgresDB       string `env:"PG_DATABASE"`
	PostgresSSLMode  string `env:"PG_SSLMODE"`

	// Connection pool settings
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME"`
}
