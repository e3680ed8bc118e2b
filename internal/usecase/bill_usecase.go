package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/infra/logger"
	"github.com/itfintrack/itfintrack/internal/ports"
)

// CreateBillRequest represents the request to create a recurring bill
type CreateBillRequest struct {
	Name        string         `json:"name"`
	CategoryID  string         `json:"category_id"`
	VendorID    *string        `json:"vendor_id,omitempty"`
	Amount      domain.Money   `json:"amount"`
	Cadence     domain.Cadence `json:"cadence"`
	StartDate   string         `json:"start_date"`
	Description string         `json:"description"`
}

// UpdateBillRequest represents a partial edit of a recurring bill
type UpdateBillRequest struct {
	Name        *string       `json:"name,omitempty"`
	CategoryID  *string       `json:"category_id,omitempty"`
	VendorID    *string       `json:"vendor_id,omitempty"`
	Amount      *domain.Money `json:"amount,omitempty"`
	IsActive    *bool         `json:"is_active,omitempty"`
	Description *string       `json:"description,omitempty"`
}

// BillView is a bill with its status on the evaluation day
type BillView struct {
	*domain.RecurringBill
	Status    domain.BillStatus `json:"status"`
	OpenCycle *domain.BillCycle `json:"open_cycle,omitempty"`
}

// GeneratedCycle describes one materialized bill cycle
type GeneratedCycle struct {
	BillID       string    `json:"bill_id"`
	ExpenseID    string    `json:"expense_id"`
	CycleDueDate time.Time `json:"cycle_due_date"`
	NextDueDate  time.Time `json:"next_due_date"`
}

// SkippedCycle describes a cycle another run already handled
type SkippedCycle struct {
	BillID       string    `json:"bill_id"`
	CycleDueDate time.Time `json:"cycle_due_date"`
	Reason       string    `json:"reason"`
}

// GenerationFailure describes a bill left untouched for manual remediation
type GenerationFailure struct {
	BillID       string           `json:"bill_id"`
	BillName     string           `json:"bill_name"`
	CycleDueDate time.Time        `json:"cycle_due_date"`
	Kind         domain.ErrorKind `json:"kind,omitempty"`
	Error        string           `json:"error"`
}

// GenerationReport summarizes one generation pass
type GenerationReport struct {
	RunAt     time.Time           `json:"run_at"`
	Today     time.Time           `json:"today"`
	Scanned   int                 `json:"scanned"`
	Generated []GeneratedCycle    `json:"generated"`
	Skipped   []SkippedCycle      `json:"skipped"`
	Failed    []GenerationFailure `json:"failed"`
}

// BillUseCase handles recurring bills: CRUD, scheduling status and expense generation
type BillUseCase struct {
	deps       Deps
	policy     domain.SchedulePolicy
	maxCatchUp int
}

// NewBillUseCase creates a new bill use case. maxCatchUp bounds how many missed
// cycles of a single bill one pass may generate.
func NewBillUseCase(deps Deps, policy domain.SchedulePolicy, maxCatchUp int) *BillUseCase {
	if maxCatchUp <= 0 {
		maxCatchUp = 1
	}
	return &BillUseCase{deps: deps.withDefaults(), policy: policy, maxCatchUp: maxCatchUp}
}

// Policy returns the schedule policy in force
func (uc *BillUseCase) Policy() domain.SchedulePolicy {
	return uc.policy
}

// CreateBill creates a recurring bill whose first cycle is due on the start date
func (uc *BillUseCase) CreateBill(ctx context.Context, actor domain.Actor, req CreateBillRequest) (*domain.RecurringBill, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionAddEdit); err != nil {
		return nil, err
	}

	start, err := parseOptionalDate("start_date", req.StartDate, uc.deps.Clock.Now())
	if err != nil {
		return nil, err
	}

	bill, err := domain.NewRecurringBill(req.Name, req.CategoryID, emptyToNil(req.VendorID), req.Amount, req.Cadence, start, actor.UserID)
	if err != nil {
		return nil, err
	}
	bill.Description = strings.TrimSpace(req.Description)

	err = uc.deps.Store.WithTx(ctx, func(repos ports.Repositories) error {
		if _, err := requireCategory(ctx, repos, bill.CategoryID); err != nil {
			return err
		}
		if _, err := requireVendor(ctx, repos, bill.VendorID); err != nil {
			return err
		}
		if err := repos.Bills.Create(ctx, bill); err != nil {
			return err
		}
		entry := domain.NewAuditEntry(actor, domain.AuditActionCreate, domain.ResourceBill, bill.ID, uc.deps.Clock.Now()).
			With("cadence", string(bill.Cadence)).
			With("amount", bill.Amount.StringFixed(2)).
			With("next_due_date", bill.NextDueDate.Format("2006-01-02"))
		return audit(ctx, repos, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create recurring bill: %w", err)
	}

	return bill, nil
}

// GetBill retrieves a bill with its status today
func (uc *BillUseCase) GetBill(ctx context.Context, actor domain.Actor, id string) (*BillView, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionView); err != nil {
		return nil, err
	}

	repos := uc.deps.Store.Repos()
	bill, err := repos.Bills.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring bill: %w", err)
	}

	return uc.view(ctx, repos, bill, uc.deps.Clock.Now())
}

// ListBills lists bills with their status today
func (uc *BillUseCase) ListBills(ctx context.Context, actor domain.Actor, filter domain.BillFilter) ([]*BillView, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionView); err != nil {
		return nil, err
	}

	filter.Limit = pageSize(filter.Limit)
	repos := uc.deps.Store.Repos()
	bills, err := repos.Bills.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring bills: %w", err)
	}

	today := uc.deps.Clock.Now()
	views := make([]*BillView, 0, len(bills))
	for _, bill := range bills {
		v, err := uc.view(ctx, repos, bill, today)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// Upcoming lists active bills that need attention: upcoming, due or overdue
func (uc *BillUseCase) Upcoming(ctx context.Context, actor domain.Actor) ([]*BillView, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionView); err != nil {
		return nil, err
	}

	repos := uc.deps.Store.Repos()
	bills, err := repos.Bills.List(ctx, domain.BillFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring bills: %w", err)
	}

	today := uc.deps.Clock.Now()
	alerts := []*BillView{}
	for _, bill := range bills {
		v, err := uc.view(ctx, repos, bill, today)
		if err != nil {
			return nil, err
		}
		switch v.Status {
		case domain.BillStatusUpcoming, domain.BillStatusDue, domain.BillStatusOverdue:
			alerts = append(alerts, v)
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return statusRank(alerts[i].Status) < statusRank(alerts[j].Status)
	})
	return alerts, nil
}

func statusRank(s domain.BillStatus) int {
	switch s {
	case domain.BillStatusOverdue:
		return 0
	case domain.BillStatusDue:
		return 1
	}
	return 2
}

func (uc *BillUseCase) view(ctx context.Context, repos ports.Repositories, bill *domain.RecurringBill, today time.Time) (*BillView, error) {
	cycle, err := repos.Expenses.OldestUnpaidCycle(ctx, bill.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bill cycle: %w", err)
	}
	return &BillView{
		RecurringBill: bill,
		Status:        bill.Evaluate(today, uc.policy, cycle),
		OpenCycle:     cycle,
	}, nil
}

// UpdateBill edits a bill. The due date schedule is never edited directly.
func (uc *BillUseCase) UpdateBill(ctx context.Context, actor domain.Actor, id string, req UpdateBillRequest) (*domain.RecurringBill, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionAddEdit); err != nil {
		return nil, err
	}

	var bill *domain.RecurringBill
	err := uc.deps.Store.WithTx(ctx, func(repos ports.Repositories) error {
		var err error
		bill, err = repos.Bills.FindByID(ctx, id)
		if err != nil {
			return err
		}

		var changed []string
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.NewValidationError("name", "name is required")
			}
			bill.Name = name
			changed = append(changed, "name")
		}
		if req.CategoryID != nil && *req.CategoryID != bill.CategoryID {
			if _, err := requireCategory(ctx, repos, *req.CategoryID); err != nil {
				return err
			}
			bill.CategoryID = *req.CategoryID
			changed = append(changed, "category_id")
		}
		if req.VendorID != nil {
			vendorID := emptyToNil(req.VendorID)
			if _, err := requireVendor(ctx, repos, vendorID); err != nil {
				return err
			}
			bill.VendorID = vendorID
			changed = append(changed, "vendor_id")
		}
		if req.Amount != nil {
			amount := domain.Cents(*req.Amount)
			if err := domain.RequirePositive("amount", amount); err != nil {
				return err
			}
			bill.Amount = amount
			changed = append(changed, "amount")
		}
		if req.IsActive != nil {
			bill.IsActive = *req.IsActive
			changed = append(changed, "is_active")
		}
		if req.Description != nil {
			bill.Description = strings.TrimSpace(*req.Description)
			changed = append(changed, "description")
		}
		if len(changed) == 0 {
			return nil
		}

		bill.UpdatedAt = uc.deps.Clock.Now()
		if err := repos.Bills.Update(ctx, bill); err != nil {
			return err
		}
		entry := domain.NewAuditEntry(actor, domain.AuditActionUpdate, domain.ResourceBill, bill.ID, bill.UpdatedAt).
			With("fields", strings.Join(changed, ","))
		return audit(ctx, repos, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update recurring bill: %w", err)
	}

	return bill, nil
}

// DeleteBill soft deletes a bill. Its generated expenses are kept.
func (uc *BillUseCase) DeleteBill(ctx context.Context, actor domain.Actor, id string) error {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionDelete); err != nil {
		return err
	}

	err := uc.deps.Store.WithTx(ctx, func(repos ports.Repositories) error {
		if err := repos.Bills.SoftDelete(ctx, id); err != nil {
			return err
		}
		return audit(ctx, repos, domain.NewAuditEntry(actor, domain.AuditActionDelete, domain.ResourceBill, id, uc.deps.Clock.Now()))
	})
	if err != nil {
		return fmt.Errorf("failed to delete recurring bill: %w", err)
	}
	return nil
}

type cycleOutcome int

const (
	cycleNotDue cycleOutcome = iota
	cycleGenerated
	cycleSkipped
)

// errCycleTaken aborts a cycle transaction that lost the race to another run
var errCycleTaken = errors.New("cycle already generated")

// GenerateDue materializes one pending expense for every due bill cycle up to today.
// A zero today means the clock's current day; a day after it is refused.
// Each cycle runs in its own transaction; a failing bill is logged, reported and
// left untouched while the batch carries on with the others.
func (uc *BillUseCase) GenerateDue(ctx context.Context, actor domain.Actor, today time.Time) (*GenerationReport, error) {
	if err := authorize(ctx, uc.deps.Logger, actor, domain.ActionAddEdit); err != nil {
		return nil, err
	}

	runAt := uc.deps.Clock.Now()
	current := domain.DateOf(runAt)
	if today.IsZero() {
		today = current
	}
	today = domain.DateOf(today)
	if today.After(current) {
		return nil, domain.NewValidationError("today", "generation cannot run ahead of the current date")
	}

	bills, err := uc.deps.Store.Repos().Bills.List(ctx, domain.BillFilter{ActiveOnly: true, DueBy: &today})
	if err != nil {
		return nil, fmt.Errorf("failed to list due bills: %w", err)
	}

	report := &GenerationReport{
		RunAt:     runAt,
		Today:     today,
		Scanned:   len(bills),
		Generated: []GeneratedCycle{},
		Skipped:   []SkippedCycle{},
		Failed:    []GenerationFailure{},
	}

	log := uc.deps.Logger.WithFields(map[string]interface{}{
		"component": "generator",
		"today":     today.Format("2006-01-02"),
	})

	for _, bill := range bills {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		for i := 0; i < uc.maxCatchUp; i++ {
			outcome, err := uc.generateCycle(ctx, actor, bill.ID, today, report)
			if err != nil {
				failure := GenerationFailure{
					BillID:       bill.ID,
					BillName:     bill.Name,
					CycleDueDate: bill.NextDueDate,
					Kind:         domain.KindOf(err),
					Error:        err.Error(),
				}
				report.Failed = append(report.Failed, failure)
				log.Error(ctx, "Recurring bill generation failed", err, map[string]interface{}{
					"bill_id":        bill.ID,
					"cycle_due_date": bill.NextDueDate.Format("2006-01-02"),
				})
				break
			}
			if outcome != cycleGenerated {
				break
			}
			last := report.Generated[len(report.Generated)-1]
			bill.NextDueDate = last.NextDueDate
		}
	}

	logger.LogPerformance(ctx, log, "generate_due_bills", time.Since(runAt), map[string]interface{}{
		"scanned":   report.Scanned,
		"generated": len(report.Generated),
		"skipped":   len(report.Skipped),
		"failed":    len(report.Failed),
	})

	return report, nil
}

// generateCycle creates the expense for the bill's current cycle and advances the
// bill, all in one transaction.
func (uc *BillUseCase) generateCycle(ctx context.Context, actor domain.Actor, billID string, today time.Time, report *GenerationReport) (cycleOutcome, error) {
	var generated GeneratedCycle
	var skipped SkippedCycle
	var due time.Time
	outcome := cycleNotDue

	err := uc.deps.Store.WithTx(ctx, func(repos ports.Repositories) error {
		bill, err := repos.Bills.FindByID(ctx, billID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}
		if !bill.IsDue(today) {
			return nil
		}

		due = bill.NextDueDate
		now := uc.deps.Clock.Now()
		next := domain.AdvanceDueDate(due, bill.Cadence, bill.BillingDay)

		existing, err := repos.Expenses.FindByCycle(ctx, bill.ID, due)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if existing != nil {
			// The cycle's expense exists but the bill was left behind; catch the schedule up.
			if err := repos.Bills.Advance(ctx, bill.ID, due, next, now); err != nil {
				return err
			}
			entry := domain.NewAuditEntry(actor, domain.AuditActionAdvance, domain.ResourceBill, bill.ID, now).
				With("from", due.Format("2006-01-02")).
				With("to", next.Format("2006-01-02")).
				With("expense_id", existing.ID)
			if err := audit(ctx, repos, entry); err != nil {
				return err
			}
			outcome = cycleSkipped
			skipped = SkippedCycle{BillID: bill.ID, CycleDueDate: due, Reason: "expense already exists for cycle"}
			return nil
		}

		if _, err := requireCategory(ctx, repos, bill.CategoryID); err != nil {
			return err
		}
		if _, err := requireVendor(ctx, repos, bill.VendorID); err != nil {
			return err
		}

		expense := domain.NewExpenseFromBill(bill, actor.UserID)
		if err := repos.Expenses.Create(ctx, expense); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return errCycleTaken
			}
			return err
		}

		if err := repos.Bills.Advance(ctx, bill.ID, due, next, now); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return errCycleTaken
			}
			return err
		}

		expenseEntry := domain.NewAuditEntry(actor, domain.AuditActionGenerate, domain.ResourceExpense, expense.ID, now).
			With("recurring_bill_id", bill.ID).
			With("cycle_due_date", due.Format("2006-01-02")).
			With("amount", expense.Amount.StringFixed(2))
		if err := audit(ctx, repos, expenseEntry); err != nil {
			return err
		}
		billEntry := domain.NewAuditEntry(actor, domain.AuditActionAdvance, domain.ResourceBill, bill.ID, now).
			With("from", due.Format("2006-01-02")).
			With("to", next.Format("2006-01-02")).
			With("expense_id", expense.ID)
		if err := audit(ctx, repos, billEntry); err != nil {
			return err
		}

		outcome = cycleGenerated
		generated = GeneratedCycle{BillID: bill.ID, ExpenseID: expense.ID, CycleDueDate: due, NextDueDate: next}
		return nil
	})

	switch {
	case errors.Is(err, errCycleTaken):
		report.Skipped = append(report.Skipped, SkippedCycle{BillID: billID, CycleDueDate: due, Reason: "generated by a concurrent run"})
		uc.deps.Logger.Info(ctx, "Recurring bill cycle already generated", map[string]interface{}{
			"bill_id":        billID,
			"cycle_due_date": due.Format("2006-01-02"),
		})
		return cycleSkipped, nil
	case err != nil:
		return cycleNotDue, err
	}

	switch outcome {
	case cycleGenerated:
		report.Generated = append(report.Generated, generated)
		uc.deps.Logger.Info(ctx, "Recurring bill cycle generated", map[string]interface{}{
			"bill_id":        generated.BillID,
			"expense_id":     generated.ExpenseID,
			"cycle_due_date": generated.CycleDueDate.Format("2006-01-02"),
			"next_due_date":  generated.NextDueDate.Format("2006-01-02"),
		})
	case cycleSkipped:
		report.Skipped = append(report.Skipped, skipped)
	}
	return outcome, nil
}
