package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// IncomeSource is a named pool of allocated funds that expenses are paid from
type IncomeSource struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Allocated   Money     `json:"allocated"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewIncomeSource creates a source with an opening allocation, which may be zero
func NewIncomeSource(name, description string, allocated Money) (*IncomeSource, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name", "name is required")
	}
	if allocated.IsNegative() {
		return nil, NewValidationError("allocated", "allocation cannot be negative")
	}
	now := time.Now().UTC()
	return &IncomeSource{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Allocated:   allocated,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Income is money received into an income source. A reimbursable income is an
// advance that is expected to be paid back later.
type Income struct {
	ID             string     `json:"id"`
	IncomeSourceID string     `json:"income_source_id"`
	Amount         Money      `json:"amount"`
	ReceivedOn     time.Time  `json:"received_on"`
	Reference      string     `json:"reference,omitempty"`
	IsReimbursable bool       `json:"is_reimbursable"`
	Reimbursed     bool       `json:"reimbursed"`
	ReimbursedOn   *time.Time `json:"reimbursed_on,omitempty"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewIncome validates and creates an income record
func NewIncome(sourceID string, amount Money, receivedOn time.Time, reference, createdBy string) (*Income, error) {
	if sourceID == "" {
		return nil, NewValidationError("income_source_id", "income source is required")
	}
	if err := RequirePositive("amount", amount); err != nil {
		return nil, err
	}
	if receivedOn.IsZero() {
		receivedOn = time.Now()
	}
	return &Income{
		ID:             uuid.NewString(),
		IncomeSourceID: sourceID,
		Amount:         amount,
		ReceivedOn:     DateOf(receivedOn),
		Reference:      strings.TrimSpace(reference),
		CreatedBy:      createdBy,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// MarkReimbursed records that a reimbursable income was paid back on the given day
func (i *Income) MarkReimbursed(on time.Time) error {
	if !i.IsReimbursable {
		return NewValidationError("income_id", "income is not reimbursable")
	}
	if i.Reimbursed {
		return NewConflict("income is already reimbursed", nil)
	}
	if on.IsZero() {
		return NewValidationError("reimbursed_on", "reimbursement date is required")
	}
	day := DateOf(on)
	if day.Before(i.ReceivedOn) {
		return NewValidationError("reimbursed_on", "reimbursement cannot precede the income")
	}
	i.Reimbursed = true
	i.ReimbursedOn = &day
	return nil
}

// IncomeFilter represents filters for listing incomes
type IncomeFilter struct {
	SourceID     string `json:"income_source_id,omitempty"`
	Reimbursable *bool  `json:"is_reimbursable,omitempty"`
	Reimbursed   *bool  `json:"reimbursed,omitempty"`
	Limit        int    `json:"limit"`
}

// Payment settles an expense from an income source
type Payment struct {
	ID             string    `json:"id"`
	IncomeSourceID string    `json:"income_source_id"`
	ExpenseID      string    `json:"expense_id"`
	Amount         Money     `json:"amount"`
	PaidOn         time.Time `json:"paid_on"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewPayment validates and creates a payment
func NewPayment(sourceID, expenseID string, amount Money, paidOn time.Time, createdBy string) (*Payment, error) {
	if sourceID == "" {
		return nil, NewValidationError("income_source_id", "income source is required")
	}
	if expenseID == "" {
		return nil, NewValidationError("expense_id", "expense is required")
	}
	if err := RequirePositive("amount", amount); err != nil {
		return nil, err
	}
	if paidOn.IsZero() {
		paidOn = time.Now()
	}
	return &Payment{
		ID:             uuid.NewString(),
		IncomeSourceID: sourceID,
		ExpenseID:      expenseID,
		Amount:         amount,
		PaidOn:         DateOf(paidOn),
		CreatedBy:      createdBy,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// Balance is the derived state of an income source
type Balance struct {
	IncomeSourceID string `json:"income_source_id"`
	Allocated      Money  `json:"allocated"`
	Consumed       Money  `json:"consumed"`
	Remaining      Money  `json:"remaining"`
}

// NewBalance derives the remaining amount from allocation and payments
func NewBalance(sourceID string, allocated, consumed Money) Balance {
	return Balance{
		IncomeSourceID: sourceID,
		Allocated:      allocated,
		Consumed:       consumed,
		Remaining:      allocated.Sub(consumed),
	}
}

// CanCover reports whether amount fits in the remaining balance
func (b Balance) CanCover(amount Money) bool {
	return amount.LessThanOrEqual(b.Remaining)
}
