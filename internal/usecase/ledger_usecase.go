package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/ports"
)

// CreateLedgerRequest represents the request to open a ledger
type CreateLedgerRequest struct {
	Name        string            `json:"name"`
	Type        domain.LedgerType `json:"ledger_type"`
	Description string            `json:"description"`
}

// AddEntryRequest represents one movement recorded in a ledger
type AddEntryRequest struct {
	Type            domain.LedgerEntryType `json:"entry_type"`
	Amount          domain.Money           `json:"amount"`
	EntryDate       string                 `json:"entry_date"`
	Description     string                 `json:"description"`
	Reference       string                 `json:"reference"`
	LinkedExpenseID *string                `json:"linked_expense_id"`
}

// LedgerView is a ledger with its derived position
type LedgerView struct {
	*domain.Ledger
	Summary domain.LedgerSummary `json:"summary"`
}

// LedgerUseCase manages advance ledgers. Each ledger belongs to the user who opened it;
// admins can see and manage every ledger.
type LedgerUseCase struct {
	deps Deps
}

// NewLedgerUseCase creates a new ledger use case
func NewLedgerUseCase(deps Deps) *LedgerUseCase {
	return &LedgerUseCase{deps: deps.withDefaults()}
}

// CreateLedger opens a ledger owned by the actor
func (uc *LedgerUseCase) CreateLedger(ctx context.Context, actor domain.Actor, req CreateLedgerRequest) (*domain.Ledger, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionView); err != nil {
		return nil, err
	}

	ledger, err := domain.NewLedger(req.Name, req.Type, actor.UserID, req.Description)
	if err != nil {
		return nil, err
	}

	err = uc.deps.Store.WithTx(ctx, func(repos ports.Repositories) error {
		if err := repos.Ledgers.Create(ctx, ledger); err != nil {
			return err
		}
		entry := domain.NewAuditEntry(actor, domain.AuditActionCreate, domain.ResourceLedger, ledger.ID, uc.deps.Clock.Now()).
			With("name", ledger.Name).
			With("ledger_type", string(ledger.Type))
		return audit(ctx, repos, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}

	return ledger, nil
}

// ListLedgers lists the actor's ledgers, or every ledger for an admin
func (uc *LedgerUseCase) ListLedgers(ctx context.Context, actor domain.Actor) ([]*domain.Ledger, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionView); err != nil {
		return nil, err
	}

	owner := actor.UserID
	if actor.Role == domain.RoleAdmin {
		owner = ""
	}

	ledgers, err := uc.deps.Store.Repos().Ledgers.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledgers: %w", err)
	}
	if ledgers == nil {
		ledgers = []*domain.Ledger{}
	}
	return ledgers, nil
}

// GetLedger returns a ledger with its balances
func (uc *LedgerUseCase) GetLedger(ctx context.Context, actor domain.Actor, id string) (*LedgerView, error) {
	repos := uc.deps.Store.Repos()
	ledger, err := uc.accessible(ctx, repos, actor, id)
	if err != nil {
		return nil, err
	}

	totals, err := repos.LedgerEntries.Totals(ctx, ledger.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to total ledger: %w", err)
	}

	return &LedgerView{Ledger: ledger, Summary: domain.SummarizeLedger(totals)}, nil
}

// DeleteLedger soft-deletes a ledger; its entries stay for the audit trail
func (uc *LedgerUseCase) DeleteLedger(ctx context.Context, actor domain.Actor, id string) error {
	return uc.deps.Store.WithTx(ctx, func(repos ports.Repositories) error {
		ledger, err := uc.accessible(ctx, repos, actor, id)
		if err != nil {
			return err
		}
		now := uc.deps.Clock.Now()
		if err := repos.Ledgers.SoftDelete(ctx, ledger.ID, now); err != nil {
			return err
		}
		return audit(ctx, repos, domain.NewAuditEntry(actor, domain.AuditActionDelete, domain.ResourceLedger, ledger.ID, now))
	})
}

// AddEntry records an advance, expense, reimbursement or return in a ledger.
// A linked expense must exist.
func (uc *LedgerUseCase) AddEntry(ctx context.Context, actor domain.Actor, ledgerID string, req AddEntryRequest) (*domain.LedgerEntry, error) {
	entryDate, err := parseOptionalDate("entry_date", req.EntryDate, uc.deps.Clock.Now())
	if err != nil {
		return nil, err
	}

	linked := emptyToNil(req.LinkedExpenseID)
	entry, err := domain.NewLedgerEntry(ledgerID, req.Type, req.Amount, entryDate, req.Description, req.Reference, linked, actor.UserID)
	if err != nil {
		return nil, err
	}

	err = uc.deps.Store.WithTx(ctx, func(repos ports.Repositories) error {
		ledger, err := uc.accessible(ctx, repos, actor, ledgerID)
		if err != nil {
			return err
		}
		if !ledger.IsActive {
			return domain.NewValidationError("ledger_id", "ledger is inactive")
		}
		if entry.LinkedExpenseID != nil {
			if _, err := repos.Expenses.FindByID(ctx, *entry.LinkedExpenseID); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.NewReferentialIntegrityError("expense", *entry.LinkedExpenseID)
				}
				return err
			}
		}
		if err := repos.LedgerEntries.Create(ctx, entry); err != nil {
			return err
		}
		record := domain.NewAuditEntry(actor, domain.AuditActionEntry, domain.ResourceLedger, ledger.ID, uc.deps.Clock.Now()).
			With("entry_id", entry.ID).
			With("entry_type", string(entry.Type)).
			With("amount", entry.Amount.StringFixed(2))
		return audit(ctx, repos, record)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add ledger entry: %w", err)
	}

	return entry, nil
}

// ListEntries lists a ledger's entries, newest first
func (uc *LedgerUseCase) ListEntries(ctx context.Context, actor domain.Actor, ledgerID string, filter domain.LedgerEntryFilter) ([]*domain.LedgerEntry, error) {
	if filter.Type != nil && !filter.Type.Valid() {
		return nil, domain.NewValidationError("entry_type", "entry type must be advance, expense, reimbursement or return")
	}

	repos := uc.deps.Store.Repos()
	if _, err := uc.accessible(ctx, repos, actor, ledgerID); err != nil {
		return nil, err
	}

	filter.Limit = pageSize(filter.Limit)
	entries, err := repos.LedgerEntries.List(ctx, ledgerID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	if entries == nil {
		entries = []*domain.LedgerEntry{}
	}
	return entries, nil
}

// accessible loads a ledger the actor may use. Ledgers of other users are refused.
func (uc *LedgerUseCase) accessible(ctx context.Context, repos ports.Repositories, actor domain.Actor, id string) (*domain.Ledger, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionView); err != nil {
		return nil, err
	}

	ledger, err := repos.Ledgers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ledger.AccessibleBy(actor) {
		uc.deps.Logger.Warn(ctx, "Ledger access refused", map[string]interface{}{
			"ledger_id": id,
			"user_id":   actor.UserID,
		})
		return nil, domain.NewPermissionDenied(actor.Role, domain.ActionView)
	}
	return ledger, nil
}
