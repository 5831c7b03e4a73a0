package repository

// Schema definitions for the paytax database.
// Compatible with both SQLite and PostgreSQL. Monetary amounts and
// timestamps are stored as TEXT so decimals round-trip exactly and ordering
// by time is a plain string comparison.

const schemaCalculations = `
CREATE TABLE IF NOT EXISTS calculations (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    employee_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    regime TEXT NOT NULL,
    gross_income TEXT NOT NULL,
    deductions TEXT NOT NULL,
    taxable_income TEXT NOT NULL,
    tax_amount TEXT NOT NULL,
    input TEXT NOT NULL,
    result TEXT NOT NULL,
    calculated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_calculations_tenant ON calculations(tenant_id, calculated_at);
CREATE INDEX IF NOT EXISTS idx_calculations_employee ON calculations(tenant_id, employee_id, calculated_at);
`

const schemaTaxRules = `
CREATE TABLE IF NOT EXISTS tax_rules (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    min_income TEXT NOT NULL,
    max_income TEXT,
    rate_percent TEXT NOT NULL,
    label TEXT,
    active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_tax_rules_active ON tax_rules(tenant_id, active);
`

const schemaAuditLog = `
CREATE TABLE IF NOT EXISTS audit_log (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    actor_id TEXT NOT NULL,
    action TEXT NOT NULL,
    details TEXT,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_log_tenant ON audit_log(tenant_id, created_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaCalculations,
		schemaTaxRules,
		schemaAuditLog,
	}
}
