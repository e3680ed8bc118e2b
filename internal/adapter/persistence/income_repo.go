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

// IncomeSourceRepository implements ports.IncomeSourceRepository
type IncomeSourceRepository struct {
	q       querier
	dialect Dialect
}

const incomeSourceColumns = `id, name, description, allocated, is_active, created_at, updated_at`

// Create saves a new income source
func (r *IncomeSourceRepository) Create(ctx context.Context, source *domain.IncomeSource) error {
	query := `INSERT INTO income_sources (` + incomeSourceColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.q.ExecContext(ctx, query,
		source.ID, source.Name, source.Description, source.Allocated,
		source.IsActive, source.CreatedAt.UTC(), source.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create income source: %w", err)
	}
	return nil
}

// FindByID retrieves an income source by its ID
func (r *IncomeSourceRepository) FindByID(ctx context.Context, id string) (*domain.IncomeSource, error) {
	return r.find(ctx, id, "")
}

// FindByIDForUpdate retrieves an income source and locks it for the rest of the transaction
func (r *IncomeSourceRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.IncomeSource, error) {
	return r.find(ctx, id, r.dialect.forUpdate())
}

func (r *IncomeSourceRepository) find(ctx context.Context, id, lock string) (*domain.IncomeSource, error) {
	query := `SELECT ` + incomeSourceColumns + ` FROM income_sources WHERE id = $1` + lock

	source, err := scanIncomeSource(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound("income source", id)
		}
		return nil, fmt.Errorf("failed to find income source: %w", err)
	}
	return source, nil
}

// List retrieves all income sources by name
func (r *IncomeSourceRepository) List(ctx context.Context) ([]*domain.IncomeSource, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+incomeSourceColumns+` FROM income_sources ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query income sources: %w", err)
	}
	defer rows.Close()

	var sources []*domain.IncomeSource
	for rows.Next() {
		source, err := scanIncomeSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan income source: %w", err)
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating income sources: %w", err)
	}
	return sources, nil
}

// AddAllocation raises the allocated amount
func (r *IncomeSourceRepository) AddAllocation(ctx context.Context, id string, delta domain.Money, at time.Time) error {
	query := `UPDATE income_sources SET allocated = allocated + $1, updated_at = $2 WHERE id = $3`

	result, err := r.q.ExecContext(ctx, query, delta, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update allocation: %w", err)
	}
	return checkAffected(result, domain.NewNotFound("income source", id))
}

func scanIncomeSource(row rowScanner) (*domain.IncomeSource, error) {
	var s domain.IncomeSource
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Allocated, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Allocated = scanMoney(s.Allocated)
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

// IncomeRepository implements ports.IncomeRepository
type IncomeRepository struct {
	q querier
}

const incomeColumns = `id, income_source_id, amount, received_on, reference, is_reimbursable, reimbursed,
	reimbursed_on, created_by, created_at`

// Create saves a new income record
func (r *IncomeRepository) Create(ctx context.Context, income *domain.Income) error {
	query := `INSERT INTO incomes (` + incomeColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.q.ExecContext(ctx, query,
		income.ID, income.IncomeSourceID, income.Amount, domain.DateOf(income.ReceivedOn),
		income.Reference, income.IsReimbursable, income.Reimbursed, nullDate(income.ReimbursedOn),
		income.CreatedBy, income.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create income: %w", err)
	}
	return nil
}

// FindByID retrieves an income by its ID
func (r *IncomeRepository) FindByID(ctx context.Context, id string) (*domain.Income, error) {
	income, err := scanIncome(r.q.QueryRowContext(ctx, `SELECT `+incomeColumns+` FROM incomes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound("income", id)
		}
		return nil, fmt.Errorf("failed to find income: %w", err)
	}
	return income, nil
}

// ListBySource retrieves the incomes of a source, newest first
func (r *IncomeRepository) ListBySource(ctx context.Context, sourceID string) ([]*domain.Income, error) {
	return r.List(ctx, domain.IncomeFilter{SourceID: sourceID})
}

// List retrieves incomes based on filter criteria
func (r *IncomeRepository) List(ctx context.Context, filter domain.IncomeFilter) ([]*domain.Income, error) {
	conditions := []string{"1 = 1"}
	var args []interface{}
	argIndex := 1

	if filter.SourceID != "" {
		conditions = append(conditions, fmt.Sprintf("income_source_id = $%d", argIndex))
		args = append(args, filter.SourceID)
		argIndex++
	}
	if filter.Reimbursable != nil {
		conditions = append(conditions, fmt.Sprintf("is_reimbursable = $%d", argIndex))
		args = append(args, *filter.Reimbursable)
		argIndex++
	}
	if filter.Reimbursed != nil {
		conditions = append(conditions, fmt.Sprintf("reimbursed = $%d", argIndex))
		args = append(args, *filter.Reimbursed)
		argIndex++
	}

	order := "received_on DESC, created_at DESC"
	if filter.Reimbursed != nil && *filter.Reimbursed {
		order = "reimbursed_on DESC, " + order
	}

	query := `SELECT ` + incomeColumns + ` FROM incomes WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY ` + order
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query incomes: %w", err)
	}
	defer rows.Close()

	var incomes []*domain.Income
	for rows.Next() {
		income, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan income: %w", err)
		}
		incomes = append(incomes, income)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating incomes: %w", err)
	}
	return incomes, nil
}

// MarkReimbursed records the reimbursement of an outstanding income
func (r *IncomeRepository) MarkReimbursed(ctx context.Context, income *domain.Income) error {
	query := `
		UPDATE incomes SET reimbursed = TRUE, reimbursed_on = $1
		WHERE id = $2 AND is_reimbursable = TRUE AND reimbursed = FALSE
	`

	result, err := r.q.ExecContext(ctx, query, nullDate(income.ReimbursedOn), income.ID)
	if err != nil {
		return fmt.Errorf("failed to mark income reimbursed: %w", err)
	}
	return checkAffected(result, domain.NewConflict("income is already reimbursed", nil))
}

func scanIncome(row rowScanner) (*domain.Income, error) {
	var in domain.Income
	var reimbursedOn sql.NullTime
	err := row.Scan(&in.ID, &in.IncomeSourceID, &in.Amount, &in.ReceivedOn, &in.Reference,
		&in.IsReimbursable, &in.Reimbursed, &reimbursedOn, &in.CreatedBy, &in.CreatedAt)
	if err != nil {
		return nil, err
	}
	in.Amount = scanMoney(in.Amount)
	in.ReceivedOn = domain.DateOf(in.ReceivedOn)
	if reimbursedOn.Valid {
		day := domain.DateOf(reimbursedOn.Time)
		in.ReimbursedOn = &day
	}
	in.CreatedAt = in.CreatedAt.UTC()
	return &in, nil
}

// PaymentRepository implements ports.PaymentRepository
type PaymentRepository struct {
	q querier
}

// Create saves a new payment
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, income_source_id, expense_id, amount, paid_on, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.ID, payment.IncomeSourceID, payment.ExpenseID, payment.Amount,
		domain.DateOf(payment.PaidOn), payment.CreatedBy, payment.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// ListByExpense retrieves the payments made against an expense
func (r *PaymentRepository) ListByExpense(ctx context.Context, expenseID string) ([]*domain.Payment, error) {
	query := `
		SELECT id, income_source_id, expense_id, amount, paid_on, created_by, created_at
		FROM payments WHERE expense_id = $1
		ORDER BY paid_on ASC, created_at ASC
	`

	rows, err := r.q.QueryContext(ctx, query, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.IncomeSourceID, &p.ExpenseID, &p.Amount, &p.PaidOn, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Amount = scanMoney(p.Amount)
		p.PaidOn = domain.DateOf(p.PaidOn)
		p.CreatedAt = p.CreatedAt.UTC()
		payments = append(payments, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}
	return payments, nil
}

// SumBySource returns the total paid from a source
func (r *PaymentRepository) SumBySource(ctx context.Context, sourceID string) (domain.Money, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE income_source_id = $1`, sourceID)
}

// SumByExpense returns the total paid against an expense
func (r *PaymentRepository) SumByExpense(ctx context.Context, expenseID string) (domain.Money, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE expense_id = $1`, expenseID)
}

func (r *PaymentRepository) sum(ctx context.Context, query, id string) (domain.Money, error) {
	var total domain.Money
	if err := r.q.QueryRowContext(ctx, query, id).Scan(&total); err != nil {
		return domain.Zero, fmt.Errorf("failed to sum payments: %w", err)
	}
	return scanMoney(total), nil
}
