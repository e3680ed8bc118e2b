package usecase

import (
	"context"
	"fmt"

	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/ports"
)

// DecisionRequest carries the approver's note or rejection reason
type DecisionRequest struct {
	Note string `json:"note"`
}

// ApprovalUseCase drives expenses through the approval workflow
type ApprovalUseCase struct {
	deps Deps
}

// NewApprovalUseCase creates a new approval use case
func NewApprovalUseCase(deps Deps) *ApprovalUseCase {
	return &ApprovalUseCase{deps: deps.withDefaults()}
}

// Approve moves a pending expense to approved
func (uc *ApprovalUseCase) Approve(ctx context.Context, actor domain.Actor, expenseID string, req DecisionRequest) (*domain.Expense, error) {
	return uc.Transition(ctx, actor, expenseID, domain.ExpenseStatusApproved, req.Note)
}

// Reject moves a pending expense to rejected
func (uc *ApprovalUseCase) Reject(ctx context.Context, actor domain.Actor, expenseID string, req DecisionRequest) (*domain.Expense, error) {
	return uc.Transition(ctx, actor, expenseID, domain.ExpenseStatusRejected, req.Note)
}

// Transition applies a decision and writes exactly one audit entry in the same transaction
func (uc *ApprovalUseCase) Transition(ctx context.Context, actor domain.Actor, expenseID string, target domain.ExpenseStatus, note string) (*domain.Expense, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionApprove); err != nil {
		return nil, err
	}

	var expense *domain.Expense
	err := uc.deps.Store.WithTx(ctx, func(repos ports.Repositories) error {
		var err error
		expense, err = repos.Expenses.FindByID(ctx, expenseID)
		if err != nil {
			return err
		}

		from := expense.Status
		now := uc.deps.Clock.Now()
		if err := expense.Decide(actor, target, note, now); err != nil {
			return err
		}
		if err := repos.Expenses.Decide(ctx, expense); err != nil {
			return err
		}

		action := domain.AuditActionApprove
		if target == domain.ExpenseStatusRejected {
			action = domain.AuditActionReject
		}
		entry := domain.NewAuditEntry(actor, action, domain.ResourceExpense, expense.ID, now).
			With("from", string(from)).
			With("to", string(expense.Status))
		if expense.DecisionNote != "" {
			entry.With("note", expense.DecisionNote)
		}
		return audit(ctx, repos, entry)
	})
	if err != nil {
		uc.deps.Logger.Warn(ctx, "Expense decision refused", map[string]interface{}{
			"expense_id": expenseID,
			"target":     string(target),
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("failed to %s expense: %w", decisionVerb(target), err)
	}

	uc.deps.Logger.Info(ctx, "Expense decided", map[string]interface{}{
		"expense_id": expense.ID,
		"status":     string(expense.Status),
		"actor_id":   actor.UserID,
	})

	return expense, nil
}

func decisionVerb(target domain.ExpenseStatus) string {
	switch target {
	case domain.ExpenseStatusApproved:
		return "approve"
	case domain.ExpenseStatusRejected:
		return "reject"
	}
	return "decide"
}
