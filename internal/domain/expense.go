package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ExpenseStatus represents the approval status of an expense
type ExpenseStatus string

const (
	ExpenseStatusPending  ExpenseStatus = "pending"
	ExpenseStatusApproved ExpenseStatus = "approved"
	ExpenseStatusRejected ExpenseStatus = "rejected"
)

// Terminal reports whether no transition may leave the status
func (s ExpenseStatus) Terminal() bool {
	return s == ExpenseStatusApproved || s == ExpenseStatusRejected
}

// Valid reports whether s is a known status
func (s ExpenseStatus) Valid() bool {
	return s == ExpenseStatusPending || s.Terminal()
}

// Expense is a spend record moving through the approval workflow
type Expense struct {
	ID              string        `json:"id"`
	CategoryID      string        `json:"category_id"`
	VendorID        *string       `json:"vendor_id,omitempty"`
	Amount          Money         `json:"amount"`
	ExpenseDate     time.Time     `json:"expense_date"`
	Description     string        `json:"description"`
	Status          ExpenseStatus `json:"status"`
	CreatedBy       string        `json:"created_by"`
	ApprovedBy      *string       `json:"approved_by,omitempty"`
	DecidedAt       *time.Time    `json:"decided_at,omitempty"`
	DecisionNote    string        `json:"decision_note,omitempty"`
	RecurringBillID *string       `json:"recurring_bill_id,omitempty"`
	CycleDueDate    *time.Time    `json:"cycle_due_date,omitempty"`
	IsDeleted       bool          `json:"-"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// NewExpense validates input and creates a pending expense
func NewExpense(categoryID string, vendorID *string, amount Money, date time.Time, description, createdBy string) (*Expense, error) {
	if categoryID == "" {
		return nil, NewValidationError("category_id", "category is required")
	}
	amount = Cents(amount)
	if err := RequirePositive("amount", amount); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, NewValidationError("expense_date", "expense date is required")
	}
	description = strings.TrimSpace(description)
	if len(description) > 2000 {
		return nil, NewValidationError("description", "description must not exceed 2000 characters")
	}

	now := time.Now().UTC()
	return &Expense{
		ID:          uuid.NewString(),
		CategoryID:  categoryID,
		VendorID:    vendorID,
		Amount:      amount,
		ExpenseDate: DateOf(date),
		Description: description,
		Status:      ExpenseStatusPending,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// NewExpenseFromBill materializes the expense for the bill's current cycle
func NewExpenseFromBill(bill *RecurringBill, createdBy string) *Expense {
	now := time.Now().UTC()
	billID := bill.ID
	due := bill.NextDueDate
	return &Expense{
		ID:              uuid.NewString(),
		CategoryID:      bill.CategoryID,
		VendorID:        bill.VendorID,
		Amount:          bill.Amount,
		ExpenseDate:     due,
		Description:     bill.Name + " - cycle due " + due.Format("2006-01-02"),
		Status:          ExpenseStatusPending,
		CreatedBy:       createdBy,
		RecurringBillID: &billID,
		CycleDueDate:    &due,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Decide moves a pending expense to approved or rejected
func (e *Expense) Decide(actor Actor, target ExpenseStatus, note string, now time.Time) error {
	if err := actor.Require(ActionApprove); err != nil {
		return err
	}
	if !target.Terminal() || e.Status.Terminal() {
		return NewInvalidStateTransition(e.Status, target)
	}
	decidedAt := now.UTC()
	approver := actor.UserID
	e.Status = target
	e.ApprovedBy = &approver
	e.DecidedAt = &decidedAt
	e.DecisionNote = strings.TrimSpace(note)
	e.UpdatedAt = decidedAt
	return nil
}

// Approve marks the expense approved
func (e *Expense) Approve(actor Actor, note string, now time.Time) error {
	return e.Decide(actor, ExpenseStatusApproved, note, now)
}

// Reject marks the expense rejected
func (e *Expense) Reject(actor Actor, reason string, now time.Time) error {
	return e.Decide(actor, ExpenseStatusRejected, reason, now)
}

// EnsureMutable refuses edits and deletes of decided expenses
func (e *Expense) EnsureMutable() error {
	if e.Status.Terminal() {
		return &AppError{
			Kind:    KindInvalidStateTransition,
			Message: "decided expenses cannot be modified",
			Details: "Status: " + string(e.Status),
		}
	}
	return nil
}

// ExpenseFilter represents filters for listing expenses
type ExpenseFilter struct {
	Status          *ExpenseStatus `json:"status,omitempty"`
	CategoryID      *string        `json:"category_id,omitempty"`
	RecurringBillID *string        `json:"recurring_bill_id,omitempty"`
	From            *time.Time     `json:"from,omitempty"`
	To              *time.Time     `json:"to,omitempty"`
	Limit           int            `json:"limit"`
	Offset          int            `json:"offset"`
}
