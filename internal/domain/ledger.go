package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// LedgerType says whose money a ledger tracks
type LedgerType string

const (
	LedgerTypePersonal LedgerType = "personal"
	LedgerTypeManager  LedgerType = "manager"
	LedgerTypeEmployee LedgerType = "employee"
)

// Valid reports whether t is a known ledger type
func (t LedgerType) Valid() bool {
	switch t {
	case LedgerTypePersonal, LedgerTypeManager, LedgerTypeEmployee:
		return true
	}
	return false
}

// LedgerEntryType is the kind of movement recorded in a ledger
type LedgerEntryType string

const (
	LedgerEntryAdvance       LedgerEntryType = "advance"
	LedgerEntryExpense       LedgerEntryType = "expense"
	LedgerEntryReimbursement LedgerEntryType = "reimbursement"
	LedgerEntryReturn        LedgerEntryType = "return"
)

// Valid reports whether t is a known entry type
func (t LedgerEntryType) Valid() bool {
	switch t {
	case LedgerEntryAdvance, LedgerEntryExpense, LedgerEntryReimbursement, LedgerEntryReturn:
		return true
	}
	return false
}

// Ledger tracks money advanced to one person and what they spent and got back
type Ledger struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        LedgerType `json:"ledger_type"`
	OwnerID     string     `json:"owner_id"`
	Description string     `json:"description,omitempty"`
	IsActive    bool       `json:"is_active"`
	IsDeleted   bool       `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewLedger creates an active ledger owned by ownerID. An empty type means personal.
func NewLedger(name string, ledgerType LedgerType, ownerID, description string) (*Ledger, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name", "name is required")
	}
	if len(name) > 100 {
		return nil, NewValidationError("name", "name must not exceed 100 characters")
	}
	if ledgerType == "" {
		ledgerType = LedgerTypePersonal
	}
	if !ledgerType.Valid() {
		return nil, NewValidationError("ledger_type", "ledger type must be personal, manager or employee")
	}
	if ownerID == "" {
		return nil, NewValidationError("owner_id", "owner is required")
	}
	now := time.Now().UTC()
	return &Ledger{
		ID:          uuid.NewString(),
		Name:        name,
		Type:        ledgerType,
		OwnerID:     ownerID,
		Description: strings.TrimSpace(description),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// AccessibleBy reports whether the actor may read or write the ledger.
// Admins see every ledger; everyone else only their own.
func (l *Ledger) AccessibleBy(actor Actor) bool {
	return actor.Role == RoleAdmin || l.OwnerID == actor.UserID
}

// LedgerEntry is one movement of money in a ledger
type LedgerEntry struct {
	ID              string          `json:"id"`
	LedgerID        string          `json:"ledger_id"`
	Type            LedgerEntryType `json:"entry_type"`
	Amount          Money           `json:"amount"`
	EntryDate       time.Time       `json:"entry_date"`
	Description     string          `json:"description"`
	Reference       string          `json:"reference,omitempty"`
	LinkedExpenseID *string         `json:"linked_expense_id,omitempty"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewLedgerEntry validates and creates a ledger entry
func NewLedgerEntry(ledgerID string, entryType LedgerEntryType, amount Money, on time.Time, description, reference string, linkedExpenseID *string, createdBy string) (*LedgerEntry, error) {
	if !entryType.Valid() {
		return nil, NewValidationError("entry_type", "entry type must be advance, expense, reimbursement or return")
	}
	amount = Cents(amount)
	if err := RequirePositive("amount", amount); err != nil {
		return nil, err
	}
	if on.IsZero() {
		return nil, NewValidationError("entry_date", "entry date is required")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, NewValidationError("description", "description is required")
	}
	reference = strings.TrimSpace(reference)
	if len(reference) > 100 {
		return nil, NewValidationError("reference", "reference must not exceed 100 characters")
	}
	return &LedgerEntry{
		ID:              uuid.NewString(),
		LedgerID:        ledgerID,
		Type:            entryType,
		Amount:          amount,
		EntryDate:       DateOf(on),
		Description:     description,
		Reference:       reference,
		LinkedExpenseID: linkedExpenseID,
		CreatedBy:       createdBy,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// LedgerSummary is the derived position of a ledger
type LedgerSummary struct {
	Advanced             Money `json:"advanced"`
	Spent                Money `json:"spent"`
	Reimbursed           Money `json:"reimbursed"`
	Returned             Money `json:"returned"`
	Balance              Money `json:"balance"`
	PendingReimbursement Money `json:"pending_reimbursement"`
}

// SummarizeLedger derives balances from per-type totals.
// Balance is what the holder still has in hand: advanced minus spent minus returned.
// PendingReimbursement is spending not yet paid back.
func SummarizeLedger(totals map[LedgerEntryType]Money) LedgerSummary {
	get := func(t LedgerEntryType) Money {
		if v, ok := totals[t]; ok {
			return v
		}
		return Zero
	}
	s := LedgerSummary{
		Advanced:   get(LedgerEntryAdvance),
		Spent:      get(LedgerEntryExpense),
		Reimbursed: get(LedgerEntryReimbursement),
		Returned:   get(LedgerEntryReturn),
	}
	s.Balance = s.Advanced.Sub(s.Spent).Sub(s.Returned)
	s.PendingReimbursement = s.Spent.Sub(s.Reimbursed)
	return s
}

// LedgerEntryFilter pages through a ledger's entries
type LedgerEntryFilter struct {
	Type   *LedgerEntryType `json:"entry_type,omitempty"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}
