package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/itfintrack/itfintrack/internal/domain"
)

// LedgerRepository implements ports.LedgerRepository
type LedgerRepository struct {
	q querier
}

const ledgerColumns = `id, name, ledger_type, owner_id, description, is_active, is_deleted, created_at, updated_at`

// Create saves a new ledger
func (r *LedgerRepository) Create(ctx context.Context, ledger *domain.Ledger) error {
	query := `INSERT INTO ledgers (` + ledgerColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.q.ExecContext(ctx, query,
		ledger.ID, ledger.Name, string(ledger.Type), ledger.OwnerID, ledger.Description,
		ledger.IsActive, ledger.IsDeleted, ledger.CreatedAt.UTC(), ledger.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger: %w", err)
	}
	return nil
}

// FindByID retrieves a ledger that has not been deleted
func (r *LedgerRepository) FindByID(ctx context.Context, id string) (*domain.Ledger, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledgers WHERE id = $1 AND is_deleted = FALSE`

	ledger, err := scanLedger(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound("ledger", id)
		}
		return nil, fmt.Errorf("failed to find ledger: %w", err)
	}
	return ledger, nil
}

// List retrieves ledgers by name, optionally for one owner
func (r *LedgerRepository) List(ctx context.Context, ownerID string) ([]*domain.Ledger, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledgers WHERE is_deleted = FALSE`
	var args []interface{}
	if ownerID != "" {
		query += ` AND owner_id = $1`
		args = append(args, ownerID)
	}
	query += ` ORDER BY name ASC, created_at ASC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledgers: %w", err)
	}
	defer rows.Close()

	var ledgers []*domain.Ledger
	for rows.Next() {
		ledger, err := scanLedger(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger: %w", err)
		}
		ledgers = append(ledgers, ledger)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledgers: %w", err)
	}
	return ledgers, nil
}

// SoftDelete marks the ledger deleted; its entries are kept
func (r *LedgerRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE ledgers SET is_deleted = TRUE, is_active = FALSE, updated_at = $1 WHERE id = $2 AND is_deleted = FALSE`

	result, err := r.q.ExecContext(ctx, query, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete ledger: %w", err)
	}
	return checkAffected(result, domain.NewNotFound("ledger", id))
}

func scanLedger(row rowScanner) (*domain.Ledger, error) {
	var l domain.Ledger
	err := row.Scan(&l.ID, &l.Name, &l.Type, &l.OwnerID, &l.Description, &l.IsActive, &l.IsDeleted, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	return &l, nil
}

// LedgerEntryRepository implements ports.LedgerEntryRepository
type LedgerEntryRepository struct {
	q querier
}

const ledgerEntryColumns = `id, ledger_id, entry_type, amount, entry_date, description, reference,
	linked_expense_id, created_by, created_at`

// Create saves a new ledger entry
func (r *LedgerEntryRepository) Create(ctx context.Context, entry *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (` + ledgerEntryColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.q.ExecContext(ctx, query,
		entry.ID, entry.LedgerID, string(entry.Type), entry.Amount, domain.DateOf(entry.EntryDate),
		entry.Description, entry.Reference, entry.LinkedExpenseID, entry.CreatedBy, entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return nil
}

// List retrieves a ledger's entries, newest first
func (r *LedgerEntryRepository) List(ctx context.Context, ledgerID string, filter domain.LedgerEntryFilter) ([]*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerEntryColumns + ` FROM ledger_entries WHERE ledger_id = $1`
	args := []interface{}{ledgerID}
	argIndex := 2

	if filter.Type != nil {
		query += fmt.Sprintf(" AND entry_type = $%d", argIndex)
		args = append(args, string(*filter.Type))
		argIndex++
	}
	query += " ORDER BY entry_date DESC, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
		argIndex++

		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET $%d", argIndex)
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var linked sql.NullString
		err := rows.Scan(&e.ID, &e.LedgerID, &e.Type, &e.Amount, &e.EntryDate, &e.Description,
			&e.Reference, &linked, &e.CreatedBy, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.Amount = scanMoney(e.Amount)
		e.EntryDate = domain.DateOf(e.EntryDate)
		e.LinkedExpenseID = stringPtr(linked)
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}

// Totals sums a ledger's entries per entry type
func (r *LedgerEntryRepository) Totals(ctx context.Context, ledgerID string) (map[domain.LedgerEntryType]domain.Money, error) {
	query := `SELECT entry_type, SUM(amount) FROM ledger_entries WHERE ledger_id = $1 GROUP BY entry_type`

	rows, err := r.q.QueryContext(ctx, query, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("failed to total ledger entries: %w", err)
	}
	defer rows.Close()

	totals := make(map[domain.LedgerEntryType]domain.Money)
	for rows.Next() {
		var entryType domain.LedgerEntryType
		var total domain.Money
		if err := rows.Scan(&entryType, &total); err != nil {
			return nil, fmt.Errorf("failed to scan ledger total: %w", err)
		}
		totals[entryType] = scanMoney(total)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger totals: %w", err)
	}
	return totals, nil
}
