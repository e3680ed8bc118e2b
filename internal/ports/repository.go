package ports

import (
	"context"
	"time"

	"github.com/itfintrack/itfintrack/internal/domain"
)

// RecurringBillRepository defines the interface for recurring bill persistence
type RecurringBillRepository interface {
	// Create saves a new bill
	Create(ctx context.Context, bill *domain.RecurringBill) error

	// FindByID retrieves a bill that has not been deleted
	FindByID(ctx context.Context, id string) (*domain.RecurringBill, error)

	// Update saves editable fields of an existing bill
	Update(ctx context.Context, bill *domain.RecurringBill) error

	// List retrieves bills based on filter criteria
	List(ctx context.Context, filter domain.BillFilter) ([]*domain.RecurringBill, error)

	// Advance moves next_due_date from `from` to `to` only if it still equals `from`.
	// It returns domain.ErrConflict when another writer advanced the bill first.
	Advance(ctx context.Context, id string, from, to, generatedAt time.Time) error

	// SoftDelete marks the bill deleted
	SoftDelete(ctx context.Context, id string) error
}

// ExpenseRepository defines the interface for expense persistence
type ExpenseRepository interface {
	// Create saves a new expense. A duplicate (bill, cycle) pair returns domain.ErrConflict.
	Create(ctx context.Context, expense *domain.Expense) error

	// FindByID retrieves an expense that has not been deleted
	FindByID(ctx context.Context, id string) (*domain.Expense, error)

	// FindByIDForUpdate reads the expense and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, id string) (*domain.Expense, error)

	// FindByCycle retrieves the expense generated for a bill cycle, or domain.ErrNotFound
	FindByCycle(ctx context.Context, billID string, cycleDue time.Time) (*domain.Expense, error)

	// OldestUnpaidCycle returns the earliest generated cycle of a bill that is neither
	// rejected nor fully paid, or nil when nothing is owed
	OldestUnpaidCycle(ctx context.Context, billID string) (*domain.BillCycle, error)

	// Update saves editable fields of a pending expense
	Update(ctx context.Context, expense *domain.Expense) error

	// Decide persists an approval decision. Only pending rows are updated; a row that
	// was decided concurrently returns domain.ErrInvalidStateTransition.
	Decide(ctx context.Context, expense *domain.Expense) error

	// List retrieves expenses based on filter criteria
	List(ctx context.Context, filter domain.ExpenseFilter) ([]*domain.Expense, error)

	// Count returns the number of expenses matching the filter
	Count(ctx context.Context, filter domain.ExpenseFilter) (int, error)

	// SoftDelete marks a pending expense deleted
	SoftDelete(ctx context.Context, id string) error
}

// VendorRepository defines the interface for vendor persistence
type VendorRepository interface {
	Create(ctx context.Context, vendor *domain.Vendor) error
	FindByID(ctx context.Context, id string) (*domain.Vendor, error)
	List(ctx context.Context) ([]*domain.Vendor, error)
	SoftDelete(ctx context.Context, id string) error
}

// CategoryRepository defines the interface for category persistence
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	FindByID(ctx context.Context, id string) (*domain.Category, error)
	List(ctx context.Context) ([]*domain.Category, error)
	SoftDelete(ctx context.Context, id string) error
}

// IncomeSourceRepository defines the interface for income source persistence
type IncomeSourceRepository interface {
	Create(ctx context.Context, source *domain.IncomeSource) error
	FindByID(ctx context.Context, id string) (*domain.IncomeSource, error)

	// FindByIDForUpdate reads the source and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, id string) (*domain.IncomeSource, error)

	List(ctx context.Context) ([]*domain.IncomeSource, error)

	// AddAllocation raises the allocated amount by delta
	AddAllocation(ctx context.Context, id string, delta domain.Money, at time.Time) error
}

// IncomeRepository defines the interface for income persistence
type IncomeRepository interface {
	Create(ctx context.Context, income *domain.Income) error
	FindByID(ctx context.Context, id string) (*domain.Income, error)
	ListBySource(ctx context.Context, sourceID string) ([]*domain.Income, error)

	// List retrieves incomes newest first; settled reimbursements sort by reimbursement date
	List(ctx context.Context, filter domain.IncomeFilter) ([]*domain.Income, error)

	// MarkReimbursed persists the reimbursement of a row that is still outstanding.
	// A row reimbursed concurrently returns domain.ErrConflict.
	MarkReimbursed(ctx context.Context, income *domain.Income) error
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	ListByExpense(ctx context.Context, expenseID string) ([]*domain.Payment, error)

	// SumBySource returns the total paid from a source
	SumBySource(ctx context.Context, sourceID string) (domain.Money, error)

	// SumByExpense returns the total paid against an expense
	SumByExpense(ctx context.Context, expenseID string) (domain.Money, error)
}

// LedgerRepository defines the interface for ledger persistence
type LedgerRepository interface {
	Create(ctx context.Context, ledger *domain.Ledger) error

	// FindByID retrieves a ledger that has not been deleted
	FindByID(ctx context.Context, id string) (*domain.Ledger, error)

	// List retrieves ledgers by name; an empty ownerID lists every owner's
	List(ctx context.Context, ownerID string) ([]*domain.Ledger, error)

	SoftDelete(ctx context.Context, id string, at time.Time) error
}

// LedgerEntryRepository defines the interface for ledger entry persistence
type LedgerEntryRepository interface {
	Create(ctx context.Context, entry *domain.LedgerEntry) error

	// List retrieves a ledger's entries newest first
	List(ctx context.Context, ledgerID string, filter domain.LedgerEntryFilter) ([]*domain.LedgerEntry, error)

	// Totals sums a ledger's entries per entry type
	Totals(ctx context.Context, ledgerID string) (map[domain.LedgerEntryType]domain.Money, error)
}

// AuditRepository defines the interface for audit log persistence.
// Entries are append-only; there is no update or delete.
type AuditRepository interface {
	// Create appends a new audit entry
	Create(ctx context.Context, entry *domain.AuditEntry) error

	// List retrieves audit entries newest first
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, error)
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
}

// ReportQuery selects the expenses a report aggregates
type ReportQuery struct {
	From            time.Time
	To              time.Time
	Status          *domain.ExpenseStatus
	ExcludeRejected bool
}

// Overview holds the all-time totals shown on the dashboard
type Overview struct {
	TotalIncome           domain.Money
	TotalExpense          domain.Money
	PendingReimbursements domain.Money
}

// ReportRepository computes aggregates over the ledger
type ReportRepository interface {
	// ExpensesByCategory groups non-deleted expenses with From <= expense_date < To
	ExpensesByCategory(ctx context.Context, q ReportQuery) ([]domain.BreakdownLine, error)

	// ExpensesByVendor groups the same expenses by vendor; no vendor is reported under an empty key
	ExpensesByVendor(ctx context.Context, q ReportQuery) ([]domain.BreakdownLine, error)

	// IncomeBySource groups incomes with From <= received_on < To
	IncomeBySource(ctx context.Context, from, to time.Time) ([]domain.BreakdownLine, error)

	// PaymentsTotal sums payments with From <= paid_on < To
	PaymentsTotal(ctx context.Context, from, to time.Time) (domain.Money, error)

	// Overview totals every income, every non-rejected expense and the
	// reimbursable incomes still outstanding
	Overview(ctx context.Context) (Overview, error)
}

// Repositories bundles every repository bound to one connection or transaction
type Repositories struct {
	Bills         RecurringBillRepository
	Expenses      ExpenseRepository
	Vendors       VendorRepository
	Categories    CategoryRepository
	IncomeSources IncomeSourceRepository
	Incomes       IncomeRepository
	Payments      PaymentRepository
	Ledgers       LedgerRepository
	LedgerEntries LedgerEntryRepository
	Audit         AuditRepository
	Users         UserRepository
	Reports       ReportRepository
}

// Store gives access to repositories and runs units of work atomically
type Store interface {
	// Repos returns repositories that run outside any transaction
	Repos() Repositories

	// WithTx runs fn in a transaction, committing when fn returns nil
	WithTx(ctx context.Context, fn func(repos Repositories) error) error
}
