package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/ports"
)

// ReportRepository implements ports.ReportRepository with SQL aggregates
type ReportRepository struct {
	q querier
}

// ExpensesByCategory groups expenses by category
func (r *ReportRepository) ExpensesByCategory(ctx context.Context, rq ports.ReportQuery) ([]domain.BreakdownLine, error) {
	query := `
		SELECT e.category_id, COALESCE(c.name, ''), COUNT(*), SUM(e.amount)
		FROM expenses e
		LEFT JOIN categories c ON c.id = e.category_id
		WHERE e.is_deleted = FALSE AND e.expense_date >= $1 AND e.expense_date < $2
	`
	query, args := expenseScope(query, rq)
	query += " GROUP BY e.category_id, c.name"

	return r.breakdown(ctx, query, args...)
}

// ExpensesByVendor groups expenses by vendor
func (r *ReportRepository) ExpensesByVendor(ctx context.Context, rq ports.ReportQuery) ([]domain.BreakdownLine, error) {
	query := `
		SELECT COALESCE(e.vendor_id, ''), COALESCE(v.name, ''), COUNT(*), SUM(e.amount)
		FROM expenses e
		LEFT JOIN vendors v ON v.id = e.vendor_id
		WHERE e.is_deleted = FALSE AND e.expense_date >= $1 AND e.expense_date < $2
	`
	query, args := expenseScope(query, rq)
	query += " GROUP BY e.vendor_id, v.name"

	return r.breakdown(ctx, query, args...)
}

// IncomeBySource groups incomes by source
func (r *ReportRepository) IncomeBySource(ctx context.Context, from, to time.Time) ([]domain.BreakdownLine, error) {
	query := `
		SELECT i.income_source_id, COALESCE(s.name, ''), COUNT(*), SUM(i.amount)
		FROM incomes i
		LEFT JOIN income_sources s ON s.id = i.income_source_id
		WHERE i.received_on >= $1 AND i.received_on < $2
		GROUP BY i.income_source_id, s.name
	`
	return r.breakdown(ctx, query, domain.DateOf(from), domain.DateOf(to))
}

// PaymentsTotal sums payments in the range
func (r *ReportRepository) PaymentsTotal(ctx context.Context, from, to time.Time) (domain.Money, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE paid_on >= $1 AND paid_on < $2`

	var total domain.Money
	if err := r.q.QueryRowContext(ctx, query, domain.DateOf(from), domain.DateOf(to)).Scan(&total); err != nil {
		return domain.Zero, fmt.Errorf("failed to sum payments: %w", err)
	}
	return scanMoney(total), nil
}

// Overview totals incomes, non-rejected expenses and outstanding reimbursements
func (r *ReportRepository) Overview(ctx context.Context) (ports.Overview, error) {
	var o ports.Overview

	queries := []struct {
		dest  *domain.Money
		query string
	}{
		{&o.TotalIncome, `SELECT COALESCE(SUM(amount), 0) FROM incomes`},
		{&o.TotalExpense, `SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE is_deleted = FALSE AND status <> 'rejected'`},
		{&o.PendingReimbursements, `SELECT COALESCE(SUM(amount), 0) FROM incomes WHERE is_reimbursable = TRUE AND reimbursed = FALSE`},
	}
	for _, q := range queries {
		var total domain.Money
		if err := r.q.QueryRowContext(ctx, q.query).Scan(&total); err != nil {
			return o, fmt.Errorf("failed to compute overview: %w", err)
		}
		*q.dest = scanMoney(total)
	}
	return o, nil
}

// expenseScope appends the date range and status conditions shared by expense breakdowns
func expenseScope(query string, rq ports.ReportQuery) (string, []interface{}) {
	args := []interface{}{domain.DateOf(rq.From), domain.DateOf(rq.To)}
	if rq.Status != nil {
		query += " AND e.status = $3"
		args = append(args, string(*rq.Status))
	} else if rq.ExcludeRejected {
		query += " AND e.status <> 'rejected'"
	}
	return query, args
}

func (r *ReportRepository) breakdown(ctx context.Context, query string, args ...interface{}) ([]domain.BreakdownLine, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query report: %w", err)
	}
	defer rows.Close()

	lines := []domain.BreakdownLine{}
	for rows.Next() {
		var line domain.BreakdownLine
		if err := rows.Scan(&line.Key, &line.Label, &line.Count, &line.Total); err != nil {
			return nil, fmt.Errorf("failed to scan report line: %w", err)
		}
		line.Total = scanMoney(line.Total)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report: %w", err)
	}

	domain.SortBreakdown(lines)
	return lines, nil
}
