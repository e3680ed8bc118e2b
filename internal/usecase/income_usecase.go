package usecase

import (
	"context"
	"fmt"

	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/ports"
)

// CreateIncomeSourceRequest represents the request to create an income source
type CreateIncomeSourceRequest struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Allocated   domain.Money `json:"allocated"`
}

// RecordIncomeRequest represents money received into a source
type RecordIncomeRequest struct {
	Amount         domain.Money `json:"amount"`
	ReceivedOn     string       `json:"received_on"`
	Reference      string       `json:"reference"`
	IsReimbursable bool         `json:"is_reimbursable"`
}

// MarkReimbursedRequest records when a reimbursable income was paid back
type MarkReimbursedRequest struct {
	ReimbursedOn string `json:"reimbursed_on"`
}

// RecordPaymentRequest represents paying an approved expense from a source
type RecordPaymentRequest struct {
	IncomeSourceID string       `json:"income_source_id"`
	ExpenseID      string       `json:"expense_id"`
	Amount         domain.Money `json:"amount"`
	PaidOn         string       `json:"paid_on"`
}

// IncomeSourceView is a source with its derived balance
type IncomeSourceView struct {
	*domain.IncomeSource
	Balance domain.Balance `json:"balance"`
}

// IncomeUseCase manages income sources, incomes and payments
type IncomeUseCase struct {
	deps Deps
}

// NewIncomeUseCase creates a new income use case
func NewIncomeUseCase(deps Deps) *IncomeUseCase {
	return &IncomeUseCase{deps: deps.withDefaults()}
}

// CreateSource creates an income source with an opening allocation
func (uc *IncomeUseCase) CreateSource(ctx context.Context, actor domain.Actor, req CreateIncomeSourceRequest) (*domain.IncomeSource, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionAddEdit); err != nil {
		return nil, err
	}

	source, err := domain.NewIncomeSource(req.Name, req.Description, domain.Cents(req.Allocated))
	if err != nil {
		return nil, err
	}

	err = uc.deps.Store.WithTx(ctx, func(repos ports.Repositories) error {
		if err := repos.IncomeSources.Create(ctx, source); err != nil {
			return err
		}
		entry := domain.NewAuditEntry(actor, domain.AuditActionCreate, domain.ResourceIncomeSource, source.ID, uc.deps.Clock.Now()).
			With("allocated", source.Allocated.StringFixed(2))
		return audit(ctx, repos, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create income source: %w", err)
	}

	return source, nil
}

// ListSources lists income sources with their balances
func (uc *IncomeUseCase) ListSources(ctx context.Context, actor domain.Actor) ([]*IncomeSourceView, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionView); err != nil {
		return nil, err
	}

	repos := uc.deps.Store.Repos()
	sources, err := repos.IncomeSources.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list income sources: %w", err)
	}

	views := make([]*IncomeSourceView, 0, len(sources))
	for _, source := range sources {
		consumed, err := repos.Payments.SumBySource(ctx, source.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to compute balance: %w", err)
		}
		views = append(views, &IncomeSourceView{
			IncomeSource: source,
			Balance:      domain.NewBalance(source.ID, source.Allocated, consumed),
		})
	}
	return views, nil
}

// Balance computes allocated, consumed and remaining for a source
func (uc *IncomeUseCase) Balance(ctx context.Context, actor domain.Actor, sourceID string) (*domain.Balance, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionView); err != nil {
		return nil, err
	}

	repos := uc.deps.Store.Repos()
	source, err := repos.IncomeSources.FindByID(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get income source: %w", err)
	}

	consumed, err := repos.Payments.SumBySource(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute balance: %w", err)
	}

	balance := domain.NewBalance(source.ID, source.Allocated, consumed)
	return &balance, nil
}

// RecordIncome records money received and raises the source's allocation
func (uc *IncomeUseCase) RecordIncome(ctx context.Context, actor domain.Actor, sourceID string, req RecordIncomeRequest) (*domain.Income, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionAddEdit); err != nil {
		return nil, err
	}

	receivedOn, err := parseOptionalDate("received_on", req.ReceivedOn, uc.deps.Clock.Now())
	if err != nil {
		return nil, err
	}

	income, err := domain.NewIncome(sourceID, domain.Cents(req.Amount), receivedOn, req.Reference, actor.UserID)
	if err != nil {
		return nil, err
	}
	income.IsReimbursable = req.IsReimbursable

	err = uc.deps.Store.WithTx(ctx, func(repos ports.Repositories) error {
		if _, err := repos.IncomeSources.FindByIDForUpdate(ctx, sourceID); err != nil {
			return err
		}
		if err := repos.Incomes.Create(ctx, income); err != nil {
			return err
		}
		now := uc.deps.Clock.Now()
		if err := repos.IncomeSources.AddAllocation(ctx, sourceID, income.Amount, now); err != nil {
			return err
		}
		entry := domain.NewAuditEntry(actor, domain.AuditActionIncome, domain.ResourceIncomeSource, sourceID, now).
			With("income_id", income.ID).
			With("amount", income.Amount.StringFixed(2))
		if income.IsReimbursable {
			entry.With("reimbursable", "true")
		}
		return audit(ctx, repos, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record income: %w", err)
	}

	return income, nil
}

// ListIncomes lists the incomes of a source
func (uc *IncomeUseCase) ListIncomes(ctx context.Context, actor domain.Actor, sourceID string) ([]*domain.Income, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionView); err != nil {
		return nil, err
	}

	repos := uc.deps.Store.Repos()
	if _, err := repos.IncomeSources.FindByID(ctx, sourceID); err != nil {
		return nil, fmt.Errorf("failed to get income source: %w", err)
	}

	incomes, err := repos.Incomes.ListBySource(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list incomes: %w", err)
	}
	if incomes == nil {
		incomes = []*domain.Income{}
	}
	return incomes, nil
}

// MarkReimbursed records that a reimbursable income was paid back. The date defaults to today.
func (uc *IncomeUseCase) MarkReimbursed(ctx context.Context, actor domain.Actor, incomeID string, req MarkReimbursedRequest) (*domain.Income, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionAddEdit); err != nil {
		return nil, err
	}

	reimbursedOn, err := parseOptionalDate("reimbursed_on", req.ReimbursedOn, uc.deps.Clock.Now())
	if err != nil {
		return nil, err
	}

	var income *domain.Income
	err = uc.deps.Store.WithTx(ctx, func(repos ports.Repositories) error {
		income, err = repos.Incomes.FindByID(ctx, incomeID)
		if err != nil {
			return err
		}
		if err := income.MarkReimbursed(reimbursedOn); err != nil {
			return err
		}
		if err := repos.Incomes.MarkReimbursed(ctx, income); err != nil {
			return err
		}
		entry := domain.NewAuditEntry(actor, domain.AuditActionReimburse, domain.ResourceIncome, income.ID, uc.deps.Clock.Now()).
			With("income_source_id", income.IncomeSourceID).
			With("amount", income.Amount.StringFixed(2)).
			With("reimbursed_on", income.ReimbursedOn.Format("2006-01-02"))
		return audit(ctx, repos, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark income reimbursed: %w", err)
	}

	return income, nil
}

// RecordPayment pays an approved expense from an income source. A payment that would
// take the source below zero fails with an overdraft error and changes nothing.
func (uc *IncomeUseCase) RecordPayment(ctx context.Context, actor domain.Actor, req RecordPaymentRequest) (*domain.Payment, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionAddEdit); err != nil {
		return nil, err
	}

	paidOn, err := parseOptionalDate("paid_on", req.PaidOn, uc.deps.Clock.Now())
	if err != nil {
		return nil, err
	}

	payment, err := domain.NewPayment(req.IncomeSourceID, req.ExpenseID, domain.Cents(req.Amount), paidOn, actor.UserID)
	if err != nil {
		return nil, err
	}

	// Rows are locked expense first, then source.
	err = uc.deps.Store.WithTx(ctx, func(repos ports.Repositories) error {
		expense, err := repos.Expenses.FindByIDForUpdate(ctx, payment.ExpenseID)
		if err != nil {
			return err
		}
		if expense.Status != domain.ExpenseStatusApproved {
			return domain.NewValidationError("expense_id", "only approved expenses can be paid")
		}

		source, err := repos.IncomeSources.FindByIDForUpdate(ctx, payment.IncomeSourceID)
		if err != nil {
			return err
		}
		if !source.IsActive {
			return domain.NewValidationError("income_source_id", "income source is inactive")
		}

		paid, err := repos.Payments.SumByExpense(ctx, expense.ID)
		if err != nil {
			return err
		}
		if paid.Add(payment.Amount).GreaterThan(expense.Amount) {
			return domain.NewValidationError("amount", fmt.Sprintf("payment exceeds the outstanding amount of %s", expense.Amount.Sub(paid).StringFixed(2)))
		}

		consumed, err := repos.Payments.SumBySource(ctx, source.ID)
		if err != nil {
			return err
		}
		balance := domain.NewBalance(source.ID, source.Allocated, consumed)
		if !balance.CanCover(payment.Amount) {
			return domain.NewOverdraftError(source.ID, balance.Remaining, payment.Amount)
		}

		if err := repos.Payments.Create(ctx, payment); err != nil {
			return err
		}
		entry := domain.NewAuditEntry(actor, domain.AuditActionPayment, domain.ResourcePayment, payment.ID, uc.deps.Clock.Now()).
			With("income_source_id", source.ID).
			With("expense_id", expense.ID).
			With("amount", payment.Amount.StringFixed(2))
		return audit(ctx, repos, entry)
	})
	if err != nil {
		uc.deps.Logger.Warn(ctx, "Payment refused", map[string]interface{}{
			"income_source_id": req.IncomeSourceID,
			"expense_id":       req.ExpenseID,
			"amount":           req.Amount.StringFixed(2),
			"error":            err.Error(),
		})
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	return payment, nil
}
