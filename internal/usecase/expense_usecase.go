package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/ports"
)

// CreateExpenseRequest represents the request to record a manual expense
type CreateExpenseRequest struct {
	CategoryID  string       `json:"category_id"`
	VendorID    *string      `json:"vendor_id,omitempty"`
	Amount      domain.Money `json:"amount"`
	ExpenseDate string       `json:"expense_date"`
	Description string       `json:"description"`
}

// UpdateExpenseRequest represents a partial edit of a pending expense
type UpdateExpenseRequest struct {
	CategoryID  *string       `json:"category_id,omitempty"`
	VendorID    *string       `json:"vendor_id,omitempty"`
	Amount      *domain.Money `json:"amount,omitempty"`
	ExpenseDate *string       `json:"expense_date,omitempty"`
	Description *string       `json:"description,omitempty"`
}

// ListExpensesResponse represents a page of expenses
type ListExpensesResponse struct {
	Expenses []*domain.Expense `json:"expenses"`
	Total    int               `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// ExpenseDetail is an expense with its payment state
type ExpenseDetail struct {
	*domain.Expense
	Paid     domain.Money      `json:"paid"`
	Payments []*domain.Payment `json:"payments"`
}

// ExpenseUseCase handles manual expense records
type ExpenseUseCase struct {
	deps Deps
}

// NewExpenseUseCase creates a new expense use case
func NewExpenseUseCase(deps Deps) *ExpenseUseCase {
	return &ExpenseUseCase{deps: deps.withDefaults()}
}

// CreateExpense records a pending expense
func (uc *ExpenseUseCase) CreateExpense(ctx context.Context, actor domain.Actor, req CreateExpenseRequest) (*domain.Expense, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionAddEdit); err != nil {
		return nil, err
	}

	date, err := parseOptionalDate("expense_date", req.ExpenseDate, uc.deps.Clock.Now())
	if err != nil {
		return nil, err
	}

	expense, err := domain.NewExpense(req.CategoryID, emptyToNil(req.VendorID), req.Amount, date, req.Description, actor.UserID)
	if err != nil {
		return nil, err
	}

	err = uc.deps.Store.WithTx(ctx, func(repos ports.Repositories) error {
		if _, err := requireCategory(ctx, repos, expense.CategoryID); err != nil {
			return err
		}
		if _, err := requireVendor(ctx, repos, expense.VendorID); err != nil {
			return err
		}
		if err := repos.Expenses.Create(ctx, expense); err != nil {
			return err
		}
		entry := domain.NewAuditEntry(actor, domain.AuditActionCreate, domain.ResourceExpense, expense.ID, uc.deps.Clock.Now()).
			With("amount", expense.Amount.StringFixed(2)).
			With("status", string(expense.Status))
		return audit(ctx, repos, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	uc.deps.Logger.Info(ctx, "Expense created", map[string]interface{}{
		"expense_id": expense.ID,
		"amount":     expense.Amount.StringFixed(2),
	})

	return expense, nil
}

// GetExpense retrieves an expense with its payments
func (uc *ExpenseUseCase) GetExpense(ctx context.Context, actor domain.Actor, id string) (*ExpenseDetail, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionView); err != nil {
		return nil, err
	}

	repos := uc.deps.Store.Repos()
	expense, err := repos.Expenses.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	payments, err := repos.Payments.ListByExpense(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense payments: %w", err)
	}

	paid := domain.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	if payments == nil {
		payments = []*domain.Payment{}
	}

	return &ExpenseDetail{Expense: expense, Paid: paid, Payments: payments}, nil
}

// ListExpenses retrieves expenses based on filter criteria
func (uc *ExpenseUseCase) ListExpenses(ctx context.Context, actor domain.Actor, filter domain.ExpenseFilter) (*ListExpensesResponse, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionView); err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, domain.NewValidationError("status", "status must be pending, approved or rejected")
	}

	filter.Limit = pageSize(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	repos := uc.deps.Store.Repos()
	expenses, err := repos.Expenses.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	total, err := repos.Expenses.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count expenses: %w", err)
	}

	if expenses == nil {
		expenses = []*domain.Expense{}
	}

	return &ListExpensesResponse{Expenses: expenses, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// UpdateExpense edits a pending expense. Decided expenses are corrected with a new expense instead.
func (uc *ExpenseUseCase) UpdateExpense(ctx context.Context, actor domain.Actor, id string, req UpdateExpenseRequest) (*domain.Expense, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionAddEdit); err != nil {
		return nil, err
	}

	var expense *domain.Expense
	err := uc.deps.Store.WithTx(ctx, func(repos ports.Repositories) error {
		var err error
		expense, err = repos.Expenses.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := expense.EnsureMutable(); err != nil {
			return err
		}

		var changed []string
		if req.CategoryID != nil && *req.CategoryID != expense.CategoryID {
			if _, err := requireCategory(ctx, repos, *req.CategoryID); err != nil {
				return err
			}
			expense.CategoryID = *req.CategoryID
			changed = append(changed, "category_id")
		}
		if req.VendorID != nil {
			vendorID := emptyToNil(req.VendorID)
			if _, err := requireVendor(ctx, repos, vendorID); err != nil {
				return err
			}
			expense.VendorID = vendorID
			changed = append(changed, "vendor_id")
		}
		if req.Amount != nil {
			amount := domain.Cents(*req.Amount)
			if err := domain.RequirePositive("amount", amount); err != nil {
				return err
			}
			expense.Amount = amount
			changed = append(changed, "amount")
		}
		if req.ExpenseDate != nil {
			date, err := domain.ParseDate("expense_date", *req.ExpenseDate)
			if err != nil {
				return err
			}
			expense.ExpenseDate = date
			changed = append(changed, "expense_date")
		}
		if req.Description != nil {
			expense.Description = strings.TrimSpace(*req.Description)
			changed = append(changed, "description")
		}
		if len(changed) == 0 {
			return nil
		}

		expense.UpdatedAt = uc.deps.Clock.Now()
		if err := repos.Expenses.Update(ctx, expense); err != nil {
			return err
		}
		entry := domain.NewAuditEntry(actor, domain.AuditActionUpdate, domain.ResourceExpense, expense.ID, expense.UpdatedAt).
			With("fields", strings.Join(changed, ","))
		return audit(ctx, repos, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}

	return expense, nil
}

// DeleteExpense soft deletes a pending expense
func (uc *ExpenseUseCase) DeleteExpense(ctx context.Context, actor domain.Actor, id string) error {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionDelete); err != nil {
		return err
	}

	err := uc.deps.Store.WithTx(ctx, func(repos ports.Repositories) error {
		expense, err := repos.Expenses.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := expense.EnsureMutable(); err != nil {
			return err
		}
		if err := repos.Expenses.SoftDelete(ctx, id); err != nil {
			return err
		}
		return audit(ctx, repos, domain.NewAuditEntry(actor, domain.AuditActionDelete, domain.ResourceExpense, id, uc.deps.Clock.Now()))
	})
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}
