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

// ExpenseRepository implements ports.ExpenseRepository
type ExpenseRepository struct {
	q       querier
	dialect Dialect
}

const expenseColumns = `id, category_id, vendor_id, amount, expense_date, description, status, created_by,
	approved_by, decided_at, decision_note, recurring_bill_id, cycle_due_date, is_deleted, created_at, updated_at`

// Create saves a new expense
func (r *ExpenseRepository) Create(ctx context.Context, expense *domain.Expense) error {
	query := `
		INSERT INTO expenses (` + expenseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	var cycleDue interface{}
	if expense.CycleDueDate != nil {
		cycleDue = domain.DateOf(*expense.CycleDueDate)
	}

	_, err := r.q.ExecContext(ctx, query,
		expense.ID,
		expense.CategoryID,
		expense.VendorID,
		expense.Amount,
		domain.DateOf(expense.ExpenseDate),
		expense.Description,
		string(expense.Status),
		expense.CreatedBy,
		expense.ApprovedBy,
		nullTime(expense.DecidedAt),
		expense.DecisionNote,
		expense.RecurringBillID,
		cycleDue,
		expense.IsDeleted,
		expense.CreatedAt.UTC(),
		expense.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflict("an expense already exists for this bill cycle", err)
		}
		return fmt.Errorf("failed to create expense: %w", err)
	}

	return nil
}

// FindByID retrieves an expense by its ID
func (r *ExpenseRepository) FindByID(ctx context.Context, id string) (*domain.Expense, error) {
	return r.find(ctx, id, "")
}

// FindByIDForUpdate retrieves an expense and locks it for the rest of the transaction
func (r *ExpenseRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Expense, error) {
	return r.find(ctx, id, r.dialect.forUpdate())
}

func (r *ExpenseRepository) find(ctx context.Context, id, lock string) (*domain.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1 AND is_deleted = FALSE` + lock

	expense, err := scanExpense(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound("expense", id)
		}
		return nil, fmt.Errorf("failed to find expense: %w", err)
	}

	return expense, nil
}

// FindByCycle retrieves the expense generated for a bill cycle, deleted or not
func (r *ExpenseRepository) FindByCycle(ctx context.Context, billID string, cycleDue time.Time) (*domain.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE recurring_bill_id = $1 AND cycle_due_date = $2`

	expense, err := scanExpense(r.q.QueryRowContext(ctx, query, billID, domain.DateOf(cycleDue)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound("bill cycle", billID+"@"+cycleDue.Format("2006-01-02"))
		}
		return nil, fmt.Errorf("failed to find bill cycle: %w", err)
	}

	return expense, nil
}

// OldestUnpaidCycle returns the earliest generated cycle of a bill that still has
// money owed on it. Deleted and rejected cycles owe nothing.
func (r *ExpenseRepository) OldestUnpaidCycle(ctx context.Context, billID string) (*domain.BillCycle, error) {
	query := `
		SELECT e.id, e.cycle_due_date, e.amount,
			COALESCE((SELECT SUM(p.amount) FROM payments p WHERE p.expense_id = e.id), 0)
		FROM expenses e
		WHERE e.recurring_bill_id = $1 AND e.is_deleted = FALSE AND e.status <> 'rejected'
		ORDER BY e.cycle_due_date ASC
	`

	rows, err := r.q.QueryContext(ctx, query, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bill cycles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cycle domain.BillCycle
		var amount, paid domain.Money
		if err := rows.Scan(&cycle.ExpenseID, &cycle.DueDate, &amount, &paid); err != nil {
			return nil, fmt.Errorf("failed to scan bill cycle: %w", err)
		}
		// Sums are compared in decimal; SQLite aggregates NUMERIC columns as floats.
		if scanMoney(paid).GreaterThanOrEqual(scanMoney(amount)) {
			continue
		}
		cycle.BillID = billID
		cycle.DueDate = domain.DateOf(cycle.DueDate)
		return &cycle, nil
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bill cycles: %w", err)
	}

	return nil, nil
}

// Update saves the editable fields of a pending expense
func (r *ExpenseRepository) Update(ctx context.Context, expense *domain.Expense) error {
	query := `
		UPDATE expenses
		SET category_id = $1, vendor_id = $2, amount = $3, expense_date = $4, description = $5, updated_at = $6
		WHERE id = $7 AND status = 'pending' AND is_deleted = FALSE
	`

	result, err := r.q.ExecContext(ctx, query,
		expense.CategoryID,
		expense.VendorID,
		expense.Amount,
		domain.DateOf(expense.ExpenseDate),
		expense.Description,
		expense.UpdatedAt.UTC(),
		expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}

	return checkAffected(result, &domain.AppError{
		Kind:    domain.KindInvalidStateTransition,
		Message: "only pending expenses can be modified",
		Details: "ID: " + expense.ID,
	})
}

// Decide persists an approval decision on a row that is still pending
func (r *ExpenseRepository) Decide(ctx context.Context, expense *domain.Expense) error {
	query := `
		UPDATE expenses
		SET status = $1, approved_by = $2, decided_at = $3, decision_note = $4, updated_at = $5
		WHERE id = $6 AND status = 'pending' AND is_deleted = FALSE
	`

	result, err := r.q.ExecContext(ctx, query,
		string(expense.Status),
		expense.ApprovedBy,
		nullTime(expense.DecidedAt),
		expense.DecisionNote,
		expense.UpdatedAt.UTC(),
		expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}

	return checkAffected(result, domain.NewInvalidStateTransition(domain.ExpenseStatusPending, expense.Status))
}

// List retrieves expenses based on filter criteria, newest first
func (r *ExpenseRepository) List(ctx context.Context, filter domain.ExpenseFilter) ([]*domain.Expense, error) {
	where, args, argIndex := expenseWhere(filter)
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` + where + ` ORDER BY expense_date DESC, created_at DESC`

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
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*domain.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}

	return expenses, nil
}

// Count returns the number of expenses matching the filter
func (r *ExpenseRepository) Count(ctx context.Context, filter domain.ExpenseFilter) (int, error) {
	where, args, _ := expenseWhere(filter)

	var count int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses WHERE `+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count expenses: %w", err)
	}

	return count, nil
}

// SoftDelete marks a pending expense deleted
func (r *ExpenseRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE expenses SET is_deleted = TRUE, updated_at = $1 WHERE id = $2 AND status = 'pending' AND is_deleted = FALSE`

	result, err := r.q.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	return checkAffected(result, &domain.AppError{
		Kind:    domain.KindInvalidStateTransition,
		Message: "only pending expenses can be deleted",
		Details: "ID: " + id,
	})
}

func expenseWhere(filter domain.ExpenseFilter) (string, []interface{}, int) {
	conditions := []string{"is_deleted = FALSE"}
	var args []interface{}
	argIndex := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, string(*filter.Status))
		argIndex++
	}

	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}

	if filter.RecurringBillID != nil {
		conditions = append(conditions, fmt.Sprintf("recurring_bill_id = $%d", argIndex))
		args = append(args, *filter.RecurringBillID)
		argIndex++
	}

	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("expense_date >= $%d", argIndex))
		args = append(args, domain.DateOf(*filter.From))
		argIndex++
	}

	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("expense_date <= $%d", argIndex))
		args = append(args, domain.DateOf(*filter.To))
		argIndex++
	}

	return strings.Join(conditions, " AND "), args, argIndex
}

func scanExpense(row rowScanner) (*domain.Expense, error) {
	var expense domain.Expense
	var vendorID, approvedBy, billID sql.NullString
	var decidedAt, cycleDue sql.NullTime

	err := row.Scan(
		&expense.ID,
		&expense.CategoryID,
		&vendorID,
		&expense.Amount,
		&expense.ExpenseDate,
		&expense.Description,
		&expense.Status,
		&expense.CreatedBy,
		&approvedBy,
		&decidedAt,
		&expense.DecisionNote,
		&billID,
		&cycleDue,
		&expense.IsDeleted,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	expense.VendorID = stringPtr(vendorID)
	expense.ApprovedBy = stringPtr(approvedBy)
	expense.RecurringBillID = stringPtr(billID)
	expense.DecidedAt = timePtr(decidedAt)
	if cycleDue.Valid {
		due := domain.DateOf(cycleDue.Time)
		expense.CycleDueDate = &due
	}
	expense.Amount = scanMoney(expense.Amount)
	expense.ExpenseDate = domain.DateOf(expense.ExpenseDate)
	expense.CreatedAt = expense.CreatedAt.UTC()
	expense.UpdatedAt = expense.UpdatedAt.UTC()

	return &expense, nil
}
