package persistence

import (
	"context"
	"fmt"
)

// schema is written in the subset of SQL shared by PostgreSQL and SQLite.
// Every statement is idempotent so Migrate can run on each start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vendors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS recurring_bills (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		vendor_id TEXT REFERENCES vendors(id),
		category_id TEXT NOT NULL REFERENCES categories(id),
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		cadence TEXT NOT NULL,
		billing_day INTEGER NOT NULL,
		start_date DATE NOT NULL,
		next_due_date DATE NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		description TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		last_generated_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recurring_bills_next_due ON recurring_bills (next_due_date)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		category_id TEXT NOT NULL REFERENCES categories(id),
		vendor_id TEXT REFERENCES vendors(id),
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		expense_date DATE NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_by TEXT NOT NULL,
		approved_by TEXT,
		decided_at TIMESTAMP,
		decision_note TEXT NOT NULL DEFAULT '',
		recurring_bill_id TEXT REFERENCES recurring_bills(id),
		cycle_due_date DATE,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_expenses_bill_cycle ON expenses (recurring_bill_id, cycle_due_date)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses (expense_date)`,
	`CREATE TABLE IF NOT EXISTS income_sources (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		allocated NUMERIC(14,2) NOT NULL CHECK (allocated >= 0),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS incomes (
		id TEXT PRIMARY KEY,
		income_source_id TEXT NOT NULL REFERENCES income_sources(id),
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		received_on DATE NOT NULL,
		reference TEXT NOT NULL DEFAULT '',
		is_reimbursable BOOLEAN NOT NULL DEFAULT FALSE,
		reimbursed BOOLEAN NOT NULL DEFAULT FALSE,
		reimbursed_on DATE,
		created_by TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		income_source_id TEXT NOT NULL REFERENCES income_sources(id),
		expense_id TEXT NOT NULL REFERENCES expenses(id),
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		paid_on DATE NOT NULL,
		created_by TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_source ON payments (income_source_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_expense ON payments (expense_id)`,
	`CREATE TABLE IF NOT EXISTS ledgers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		ledger_type TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledgers_owner ON ledgers (owner_id)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		ledger_id TEXT NOT NULL REFERENCES ledgers(id),
		entry_type TEXT NOT NULL,
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		entry_date DATE NOT NULL,
		description TEXT NOT NULL,
		reference TEXT NOT NULL DEFAULT '',
		linked_expense_id TEXT REFERENCES expenses(id),
		created_by TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_ledger ON ledger_entries (ledger_id)`,
	`CREATE TABLE IF NOT EXISTS audit_entries (
		id TEXT PRIMARY KEY,
		resource_type TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		action TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_entries (resource_type, resource_id)`,
}

// Migrate creates missing tables and indexes
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
