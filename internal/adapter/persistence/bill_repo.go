package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/itfintrack/itfintrack/internal/domain"
)

// BillRepository implements ports.RecurringBillRepository
type BillRepository struct {
	q querier
}

const billColumns = `id, name, vendor_id, category_id, amount, cadence, billing_day, start_date, next_due_date,
	is_active, is_deleted, description, created_by, created_at, updated_at, last_generated_at`

// Create saves a new bill
func (r *BillRepository) Create(ctx context.Context, bill *domain.RecurringBill) error {
	query := `
		INSERT INTO recurring_bills (` + billColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.q.ExecContext(ctx, query,
		bill.ID,
		bill.Name,
		bill.VendorID,
		bill.CategoryID,
		bill.Amount,
		string(bill.Cadence),
		bill.BillingDay,
		bill.StartDate,
		bill.NextDueDate,
		bill.IsActive,
		bill.IsDeleted,
		bill.Description,
		bill.CreatedBy,
		bill.CreatedAt.UTC(),
		bill.UpdatedAt.UTC(),
		nullTime(bill.LastGeneratedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create recurring bill: %w", err)
	}

	return nil
}

// FindByID retrieves a bill by its ID
func (r *BillRepository) FindByID(ctx context.Context, id string) (*domain.RecurringBill, error) {
	query := `SELECT ` + billColumns + ` FROM recurring_bills WHERE id = $1 AND is_deleted = FALSE`

	bill, err := scanBill(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound("recurring bill", id)
		}
		return nil, fmt.Errorf("failed to find recurring bill: %w", err)
	}

	return bill, nil
}

// Update saves the editable fields of a bill. next_due_date only moves through Advance.
func (r *BillRepository) Update(ctx context.Context, bill *domain.RecurringBill) error {
	query := `
		UPDATE recurring_bills
		SET name = $1, vendor_id = $2, category_id = $3, amount = $4, is_active = $5,
			description = $6, updated_at = $7
		WHERE id = $8 AND is_deleted = FALSE
	`

	result, err := r.q.ExecContext(ctx, query,
		bill.Name,
		bill.VendorID,
		bill.CategoryID,
		bill.Amount,
		bill.IsActive,
		bill.Description,
		bill.UpdatedAt.UTC(),
		bill.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update recurring bill: %w", err)
	}

	return checkAffected(result, domain.NewNotFound("recurring bill", bill.ID))
}

// List retrieves bills based on filter criteria, earliest due first
func (r *BillRepository) List(ctx context.Context, filter domain.BillFilter) ([]*domain.RecurringBill, error) {
	query := `SELECT ` + billColumns + ` FROM recurring_bills WHERE is_deleted = FALSE`

	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}

	if filter.DueBy != nil {
		conditions = append(conditions, fmt.Sprintf("next_due_date <= $%d", argIndex))
		args = append(args, domain.DateOf(*filter.DueBy))
		argIndex++
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY next_due_date ASC, id ASC"

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
		return nil, fmt.Errorf("failed to query recurring bills: %w", err)
	}
	defer rows.Close()

	var bills []*domain.RecurringBill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recurring bill: %w", err)
		}
		bills = append(bills, bill)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recurring bills: %w", err)
	}

	return bills, nil
}

// Advance moves the bill forward one cycle, guarded by its previous due date
func (r *BillRepository) Advance(ctx context.Context, id string, from, to, generatedAt time.Time) error {
	if !to.After(from) {
		return fmt.Errorf("refusing to move next due date backwards from %s to %s",
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	query := `
		UPDATE recurring_bills
		SET next_due_date = $1, last_generated_at = $2, updated_at = $3
		WHERE id = $4 AND next_due_date = $5 AND is_deleted = FALSE
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.DateOf(to),
		generatedAt.UTC(),
		generatedAt.UTC(),
		id,
		domain.DateOf(from),
	)
	if err != nil {
		return fmt.Errorf("failed to advance recurring bill: %w", err)
	}

	return checkAffected(result, domain.NewConflict("recurring bill was advanced concurrently", nil))
}

// SoftDelete marks the bill deleted
func (r *BillRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE recurring_bills SET is_deleted = TRUE, is_active = FALSE, updated_at = $1 WHERE id = $2 AND is_deleted = FALSE`

	result, err := r.q.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete recurring bill: %w", err)
	}

	return checkAffected(result, domain.NewNotFound("recurring bill", id))
}

func scanBill(row rowScanner) (*domain.RecurringBill, error) {
	var bill domain.RecurringBill
	var vendorID sql.NullString
	var lastGenerated sql.NullTime

	err := row.Scan(
		&bill.ID,
		&bill.Name,
		&vendorID,
		&bill.CategoryID,
		&bill.Amount,
		&bill.Cadence,
		&bill.BillingDay,
		&bill.StartDate,
		&bill.NextDueDate,
		&bill.IsActive,
		&bill.IsDeleted,
		&bill.Description,
		&bill.CreatedBy,
		&bill.CreatedAt,
		&bill.UpdatedAt,
		&lastGenerated,
	)
	if err != nil {
		return nil, err
	}

	bill.VendorID = stringPtr(vendorID)
	bill.LastGeneratedAt = timePtr(lastGenerated)
	bill.Amount = scanMoney(bill.Amount)
	bill.StartDate = domain.DateOf(bill.StartDate)
	bill.NextDueDate = domain.DateOf(bill.NextDueDate)
	bill.CreatedAt = bill.CreatedAt.UTC()
	bill.UpdatedAt = bill.UpdatedAt.UTC()

	return &bill, nil
}
