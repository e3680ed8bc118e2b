package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// BillStatus is the scheduling status of a recurring bill on a given day
type BillStatus string

const (
	BillStatusInactive  BillStatus = "inactive"
	BillStatusScheduled BillStatus = "scheduled"
	BillStatusUpcoming  BillStatus = "upcoming"
	BillStatusDue       BillStatus = "due"
	BillStatusOverdue   BillStatus = "overdue"
)

// SchedulePolicy controls overdue and upcoming detection
type SchedulePolicy struct {
	GraceDays     int `json:"grace_days"`
	LookaheadDays int `json:"lookahead_days"`
}

// DefaultSchedulePolicy is overdue the day after the due date, upcoming a week ahead
var DefaultSchedulePolicy = SchedulePolicy{GraceDays: 0, LookaheadDays: 7}

// RecurringBill is a template that produces one expense per cycle
type RecurringBill struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	VendorID        *string    `json:"vendor_id,omitempty"`
	CategoryID      string     `json:"category_id"`
	Amount          Money      `json:"amount"`
	Cadence         Cadence    `json:"cadence"`
	BillingDay      int        `json:"billing_day"`
	StartDate       time.Time  `json:"start_date"`
	NextDueDate     time.Time  `json:"next_due_date"`
	IsActive        bool       `json:"is_active"`
	IsDeleted       bool       `json:"-"`
	Description     string     `json:"description,omitempty"`
	CreatedBy       string     `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastGeneratedAt *time.Time `json:"last_generated_at,omitempty"`
}

// BillCycle is one generated instance of a bill, identified by bill and due date
type BillCycle struct {
	BillID    string    `json:"bill_id"`
	DueDate   time.Time `json:"due_date"`
	ExpenseID string    `json:"expense_id"`
	Paid      bool      `json:"paid"`
}

// NewRecurringBill validates input and creates an active bill whose first
// cycle is due on startDate.
func NewRecurringBill(name, categoryID string, vendorID *string, amount Money, cadence Cadence, startDate time.Time, createdBy string) (*RecurringBill, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name", "name is required")
	}
	if categoryID == "" {
		return nil, NewValidationError("category_id", "category is required")
	}
	amount = Cents(amount)
	if err := RequirePositive("amount", amount); err != nil {
		return nil, err
	}
	if !cadence.Valid() {
		return nil, NewValidationError("cadence", "cadence must be monthly, quarterly or yearly")
	}
	if startDate.IsZero() {
		return nil, NewValidationError("start_date", "start date is required")
	}

	start := DateOf(startDate)
	now := time.Now().UTC()
	return &RecurringBill{
		ID:          uuid.NewString(),
		Name:        name,
		VendorID:    vendorID,
		CategoryID:  categoryID,
		Amount:      amount,
		Cadence:     cadence,
		BillingDay:  start.Day(),
		StartDate:   start,
		NextDueDate: start,
		IsActive:    true,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Schedulable reports whether the bill takes part in due/overdue computation
func (b *RecurringBill) Schedulable() bool {
	return b.IsActive && !b.IsDeleted
}

// IsDue reports whether the current cycle should be generated on today
func (b *RecurringBill) IsDue(today time.Time) bool {
	return b.Schedulable() && !DateOf(today).Before(b.NextDueDate)
}

// Evaluate computes the bill's status on today. openCycle is the oldest
// generated cycle that has not been paid yet, or nil.
func (b *RecurringBill) Evaluate(today time.Time, policy SchedulePolicy, openCycle *BillCycle) BillStatus {
	if !b.Schedulable() {
		return BillStatusInactive
	}
	day := DateOf(today)
	grace := time.Duration(policy.GraceDays) * 24 * time.Hour

	if openCycle != nil && !openCycle.Paid && day.After(DateOf(openCycle.DueDate).Add(grace)) {
		return BillStatusOverdue
	}
	if !day.Before(b.NextDueDate) {
		if day.After(b.NextDueDate.Add(grace)) {
			return BillStatusOverdue
		}
		return BillStatusDue
	}
	lookahead := time.Duration(policy.LookaheadDays) * 24 * time.Hour
	if !b.NextDueDate.After(day.Add(lookahead)) {
		return BillStatusUpcoming
	}
	return BillStatusScheduled
}

// Advance moves the bill to its next cycle after generation
func (b *RecurringBill) Advance(now time.Time) time.Time {
	prior := b.NextDueDate
	b.NextDueDate = AdvanceDueDate(prior, b.Cadence, b.BillingDay)
	generatedAt := now.UTC()
	b.LastGeneratedAt = &generatedAt
	b.UpdatedAt = generatedAt
	return prior
}

// BillFilter represents filters for listing bills
type BillFilter struct {
	ActiveOnly bool `json:"active_only"`
	DueBy      *time.Time
	Limit      int `json:"limit"`
	Offset     int `json:"offset"`
}
