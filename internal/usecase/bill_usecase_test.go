package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/ports"
)

// staleCycleStore makes every transaction miss existing cycle expenses, as a
// run that read the bill before another run committed would
type staleCycleStore struct {
	ports.Store
}

func (s staleCycleStore) WithTx(ctx context.Context, fn func(repos ports.Repositories) error) error {
	return s.Store.WithTx(ctx, func(repos ports.Repositories) error {
		repos.Expenses = staleCycleReads{repos.Expenses}
		return fn(repos)
	})
}

type staleCycleReads struct {
	ports.ExpenseRepository
}

func (staleCycleReads) FindByCycle(_ context.Context, billID string, cycleDue time.Time) (*domain.Expense, error) {
	return nil, domain.NewNotFound("bill cycle", billID+"@"+cycleDue.Format("2006-01-02"))
}

func (s *UseCaseTestSuite) TestGenerateDueIsIdempotent() {
	bill := s.createBill("Hosting", "99.90", domain.CadenceMonthly, date(2024, time.January, 31))

	report, err := s.bills.GenerateDue(s.ctx, admin, time.Time{})
	require.NoError(s.T(), err)
	require.Len(s.T(), report.Generated, 1)
	assert.Empty(s.T(), report.Failed)
	assert.Equal(s.T(), date(2024, time.January, 31), report.Generated[0].CycleDueDate)
	assert.Equal(s.T(), date(2024, time.February, 29), report.Generated[0].NextDueDate)

	report, err = s.bills.GenerateDue(s.ctx, admin, time.Time{})
	require.NoError(s.T(), err)
	assert.Empty(s.T(), report.Generated)

	list, err := s.expenses.ListExpenses(s.ctx, admin, domain.ExpenseFilter{RecurringBillID: &bill.ID})
	require.NoError(s.T(), err)
	require.Equal(s.T(), 1, list.Total)

	expense := list.Expenses[0]
	assert.Equal(s.T(), domain.ExpenseStatusPending, expense.Status)
	assert.True(s.T(), money("99.90").Equal(expense.Amount))
	require.NotNil(s.T(), expense.CycleDueDate)
	assert.Equal(s.T(), date(2024, time.January, 31), *expense.CycleDueDate)

	stored, err := s.repos.Bills.FindByID(s.ctx, bill.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), date(2024, time.February, 29), stored.NextDueDate)
	assert.NotNil(s.T(), stored.LastGeneratedAt)
}

func (s *UseCaseTestSuite) TestGenerateDueWritesAuditEntries() {
	bill := s.createBill("Hosting", "10.00", domain.CadenceMonthly, date(2024, time.January, 31))

	report, err := s.bills.GenerateDue(s.ctx, domain.SystemActor, time.Time{})
	require.NoError(s.T(), err)
	require.Len(s.T(), report.Generated, 1)

	expenseAudit := s.auditFor(domain.ResourceExpense, report.Generated[0].ExpenseID)
	require.Len(s.T(), expenseAudit, 1)
	assert.Equal(s.T(), domain.AuditActionGenerate, expenseAudit[0].Action)
	assert.Equal(s.T(), "system", expenseAudit[0].ActorID)
	assert.Equal(s.T(), "2024-01-31", expenseAudit[0].Metadata["cycle_due_date"])

	var advances []*domain.AuditEntry
	for _, e := range s.auditFor(domain.ResourceBill, bill.ID) {
		if e.Action == domain.AuditActionAdvance {
			advances = append(advances, e)
		}
	}
	require.Len(s.T(), advances, 1)
	assert.Equal(s.T(), "2024-01-31", advances[0].Metadata["from"])
	assert.Equal(s.T(), "2024-02-29", advances[0].Metadata["to"])
}

func (s *UseCaseTestSuite) TestGenerateDueCatchesUpMissedCycles() {
	bill := s.createBill("Licences", "25.00", domain.CadenceMonthly, date(2024, time.January, 15))
	s.clock.set(date(2024, time.April, 20))

	report, err := s.bills.GenerateDue(s.ctx, admin, time.Time{})
	require.NoError(s.T(), err)
	require.Len(s.T(), report.Generated, 4)

	want := []time.Time{
		date(2024, time.January, 15),
		date(2024, time.February, 15),
		date(2024, time.March, 15),
		date(2024, time.April, 15),
	}
	for i, g := range report.Generated {
		assert.Equal(s.T(), want[i], g.CycleDueDate)
		assert.True(s.T(), g.NextDueDate.After(g.CycleDueDate))
	}

	stored, err := s.repos.Bills.FindByID(s.ctx, bill.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), date(2024, time.May, 15), stored.NextDueDate)
}

func (s *UseCaseTestSuite) TestGenerateDueCatchUpIsBounded() {
	bounded := NewBillUseCase(Deps{Store: s.store, Clock: s.clock}, domain.DefaultSchedulePolicy, 2)
	bill := s.createBill("Licences", "25.00", domain.CadenceMonthly, date(2024, time.January, 15))
	s.clock.set(date(2024, time.June, 1))

	report, err := bounded.GenerateDue(s.ctx, admin, time.Time{})
	require.NoError(s.T(), err)
	assert.Len(s.T(), report.Generated, 2)

	stored, err := s.repos.Bills.FindByID(s.ctx, bill.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), date(2024, time.March, 15), stored.NextDueDate)
}

func (s *UseCaseTestSuite) TestGenerateDueRefusesFutureDay() {
	bill := s.createBill("Licences", "25.00", domain.CadenceMonthly, date(2024, time.March, 1))

	_, err := s.bills.GenerateDue(s.ctx, accountant, date(2025, time.January, 1))
	require.Error(s.T(), err)
	assert.Equal(s.T(), domain.KindValidation, domain.KindOf(err))

	count, err := s.repos.Expenses.Count(s.ctx, domain.ExpenseFilter{RecurringBillID: &bill.ID})
	require.NoError(s.T(), err)
	assert.Zero(s.T(), count)

	stored, err := s.repos.Bills.FindByID(s.ctx, bill.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), date(2024, time.March, 1), stored.NextDueDate)

	// an earlier day is allowed and only sees what was due by then
	report, err := s.bills.GenerateDue(s.ctx, accountant, date(2024, time.January, 10))
	require.NoError(s.T(), err)
	assert.Empty(s.T(), report.Generated)
}

func (s *UseCaseTestSuite) TestGenerateDueFailureLeavesBillAndContinues() {
	orphanCategory, err := s.catalog.CreateCategory(s.ctx, admin, CreateCategoryRequest{Name: "Telecom"})
	require.NoError(s.T(), err)

	broken, err := s.bills.CreateBill(s.ctx, admin, CreateBillRequest{
		Name:       "Phone line",
		CategoryID: orphanCategory.ID,
		Amount:     money("40.00"),
		Cadence:    domain.CadenceMonthly,
		StartDate:  "2024-01-10",
	})
	require.NoError(s.T(), err)
	healthy := s.createBill("Hosting", "99.90", domain.CadenceMonthly, date(2024, time.January, 20))

	require.NoError(s.T(), s.catalog.DeleteCategory(s.ctx, admin, orphanCategory.ID))

	report, err := s.bills.GenerateDue(s.ctx, admin, time.Time{})
	require.NoError(s.T(), err)

	require.Len(s.T(), report.Failed, 1)
	assert.Equal(s.T(), broken.ID, report.Failed[0].BillID)
	assert.Equal(s.T(), domain.KindReferentialIntegrity, report.Failed[0].Kind)

	require.Len(s.T(), report.Generated, 1)
	assert.Equal(s.T(), healthy.ID, report.Generated[0].BillID)

	stored, err := s.repos.Bills.FindByID(s.ctx, broken.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), date(2024, time.January, 10), stored.NextDueDate, "failed bill must not advance")

	count, err := s.repos.Expenses.Count(s.ctx, domain.ExpenseFilter{RecurringBillID: &broken.ID})
	require.NoError(s.T(), err)
	assert.Zero(s.T(), count)
}

func (s *UseCaseTestSuite) TestGenerateDueRepairsBillBehindItsExpense() {
	bill := s.createBill("Hosting", "99.90", domain.CadenceMonthly, date(2024, time.January, 31))

	// a cycle expense exists but the bill was never advanced
	stale := domain.NewExpenseFromBill(bill, "system")
	require.NoError(s.T(), s.repos.Expenses.Create(s.ctx, stale))

	report, err := s.bills.GenerateDue(s.ctx, admin, time.Time{})
	require.NoError(s.T(), err)
	assert.Empty(s.T(), report.Generated)
	require.Len(s.T(), report.Skipped, 1)

	stored, err := s.repos.Bills.FindByID(s.ctx, bill.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), date(2024, time.February, 29), stored.NextDueDate)

	count, err := s.repos.Expenses.Count(s.ctx, domain.ExpenseFilter{RecurringBillID: &bill.ID})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, count)
}

func (s *UseCaseTestSuite) TestGenerateDueLosingRaceSkipsCycle() {
	bill := s.createBill("Hosting", "99.90", domain.CadenceMonthly, date(2024, time.January, 31))

	// the other run committed its expense after this run looked
	winner := domain.NewExpenseFromBill(bill, "system")
	require.NoError(s.T(), s.repos.Expenses.Create(s.ctx, winner))

	racing := NewBillUseCase(Deps{Store: staleCycleStore{Store: s.store}, Clock: s.clock}, domain.DefaultSchedulePolicy, 12)
	report, err := racing.GenerateDue(s.ctx, domain.SystemActor, time.Time{})
	require.NoError(s.T(), err)

	assert.Empty(s.T(), report.Generated)
	assert.Empty(s.T(), report.Failed)
	require.Len(s.T(), report.Skipped, 1)
	assert.Equal(s.T(), bill.ID, report.Skipped[0].BillID)
	assert.Equal(s.T(), date(2024, time.January, 31), report.Skipped[0].CycleDueDate)

	list, err := s.expenses.ListExpenses(s.ctx, admin, domain.ExpenseFilter{RecurringBillID: &bill.ID})
	require.NoError(s.T(), err)
	require.Equal(s.T(), 1, list.Total)
	assert.Equal(s.T(), winner.ID, list.Expenses[0].ID)

	stored, err := s.repos.Bills.FindByID(s.ctx, bill.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), date(2024, time.January, 31), stored.NextDueDate)
	assert.Nil(s.T(), stored.LastGeneratedAt)
	assert.Empty(s.T(), s.auditFor(domain.ResourceExpense, winner.ID))
}

func (s *UseCaseTestSuite) TestGenerateDueSkipsInactiveBills() {
	bill := s.createBill("Hosting", "99.90", domain.CadenceMonthly, date(2024, time.January, 1))
	inactive := false
	_, err := s.bills.UpdateBill(s.ctx, admin, bill.ID, UpdateBillRequest{IsActive: &inactive})
	require.NoError(s.T(), err)

	report, err := s.bills.GenerateDue(s.ctx, admin, time.Time{})
	require.NoError(s.T(), err)
	assert.Zero(s.T(), report.Scanned)
	assert.Empty(s.T(), report.Generated)
}

func (s *UseCaseTestSuite) TestGenerateDueRequiresAddEdit() {
	s.createBill("Hosting", "99.90", domain.CadenceMonthly, date(2024, time.January, 1))

	_, err := s.bills.GenerateDue(s.ctx, manager, time.Time{})
	assert.True(s.T(), errors.Is(err, domain.ErrPermissionDenied))

	count, err := s.repos.Expenses.Count(s.ctx, domain.ExpenseFilter{})
	require.NoError(s.T(), err)
	assert.Zero(s.T(), count)
}

func (s *UseCaseTestSuite) TestCreateBillRejectsUnknownCategory() {
	_, err := s.bills.CreateBill(s.ctx, admin, CreateBillRequest{
		Name:       "Ghost",
		CategoryID: "missing",
		Amount:     money("1.00"),
		Cadence:    domain.CadenceYearly,
		StartDate:  "2024-01-01",
	})
	assert.True(s.T(), errors.Is(err, domain.ErrReferentialIntegrity))
}

func (s *UseCaseTestSuite) TestCreateBillValidation() {
	_, err := s.bills.CreateBill(s.ctx, admin, CreateBillRequest{
		Name:       "Weekly",
		CategoryID: s.category.ID,
		Amount:     money("1.00"),
		Cadence:    domain.Cadence("weekly"),
	})
	assert.True(s.T(), errors.Is(err, domain.ErrValidation))

	_, err = s.bills.CreateBill(s.ctx, viewer, CreateBillRequest{Name: "x"})
	assert.True(s.T(), errors.Is(err, domain.ErrPermissionDenied))
}

func (s *UseCaseTestSuite) TestUpcomingOrdersByUrgency() {
	s.clock.set(date(2024, time.March, 10))
	upcoming := s.createBill("Upcoming", "1.00", domain.CadenceMonthly, date(2024, time.March, 12))
	due := s.createBill("Due", "1.00", domain.CadenceMonthly, date(2024, time.March, 10))
	overdue := s.createBill("Overdue", "1.00", domain.CadenceMonthly, date(2024, time.March, 1))
	s.createBill("Later", "1.00", domain.CadenceMonthly, date(2024, time.June, 1))

	views, err := s.bills.Upcoming(s.ctx, viewer)
	require.NoError(s.T(), err)
	require.Len(s.T(), views, 3)

	assert.Equal(s.T(), overdue.ID, views[0].ID)
	assert.Equal(s.T(), domain.BillStatusOverdue, views[0].Status)
	assert.Equal(s.T(), due.ID, views[1].ID)
	assert.Equal(s.T(), domain.BillStatusDue, views[1].Status)
	assert.Equal(s.T(), upcoming.ID, views[2].ID)
	assert.Equal(s.T(), domain.BillStatusUpcoming, views[2].Status)
}

func (s *UseCaseTestSuite) TestUnpaidGeneratedCycleBecomesOverdue() {
	bill := s.createBill("Hosting", "50.00", domain.CadenceMonthly, date(2024, time.January, 31))
	_, err := s.bills.GenerateDue(s.ctx, admin, time.Time{})
	require.NoError(s.T(), err)

	s.clock.set(date(2024, time.February, 5))
	view, err := s.bills.GetBill(s.ctx, viewer, bill.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), domain.BillStatusOverdue, view.Status)
	require.NotNil(s.T(), view.OpenCycle)

	// a rejected cycle is settled
	_, err = s.approvals.Reject(s.ctx, admin, view.OpenCycle.ExpenseID, DecisionRequest{Note: "duplicate"})
	require.NoError(s.T(), err)

	view, err = s.bills.GetBill(s.ctx, viewer, bill.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), domain.BillStatusScheduled, view.Status)
	assert.Nil(s.T(), view.OpenCycle)
}

func (s *UseCaseTestSuite) TestOlderUnpaidCycleKeepsBillOverdue() {
	bill := s.createBill("Hosting", "80.00", domain.CadenceMonthly, date(2024, time.January, 1))
	s.clock.set(date(2024, time.February, 1))
	report, err := s.bills.GenerateDue(s.ctx, admin, time.Time{})
	require.NoError(s.T(), err)
	require.Len(s.T(), report.Generated, 2)
	january, february := report.Generated[0], report.Generated[1]

	source, err := s.incomes.CreateSource(s.ctx, admin, CreateIncomeSourceRequest{Name: "IT budget", Allocated: money("500")})
	require.NoError(s.T(), err)
	_, err = s.approvals.Approve(s.ctx, manager, february.ExpenseID, DecisionRequest{})
	require.NoError(s.T(), err)
	_, err = s.incomes.RecordPayment(s.ctx, accountant, RecordPaymentRequest{
		IncomeSourceID: source.ID,
		ExpenseID:      february.ExpenseID,
		Amount:         money("80.00"),
	})
	require.NoError(s.T(), err)

	s.clock.set(date(2024, time.February, 10))
	view, err := s.bills.GetBill(s.ctx, viewer, bill.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), domain.BillStatusOverdue, view.Status)
	require.NotNil(s.T(), view.OpenCycle)
	assert.Equal(s.T(), january.ExpenseID, view.OpenCycle.ExpenseID)
	assert.Equal(s.T(), date(2024, time.January, 1), view.OpenCycle.DueDate)
}

func (s *UseCaseTestSuite) TestUpdateBillKeepsSchedule() {
	bill := s.createBill("Hosting", "50.00", domain.CadenceQuarterly, date(2024, time.January, 31))
	amount := money("75.00")
	name := "Hosting (new plan)"
	s.clock.set(date(2024, time.February, 1))

	updated, err := s.bills.UpdateBill(s.ctx, accountant, bill.ID, UpdateBillRequest{Amount: &amount, Name: &name})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), name, updated.Name)
	assert.Equal(s.T(), bill.NextDueDate, updated.NextDueDate)

	entries := s.auditFor(domain.ResourceBill, bill.ID)
	require.NotEmpty(s.T(), entries)
	assert.Equal(s.T(), domain.AuditActionUpdate, entries[0].Action)
}

func (s *UseCaseTestSuite) TestDeleteBillHidesItFromGeneration() {
	bill := s.createBill("Hosting", "50.00", domain.CadenceMonthly, date(2024, time.January, 1))

	assert.True(s.T(), errors.Is(s.bills.DeleteBill(s.ctx, accountant, bill.ID), domain.ErrPermissionDenied))
	require.NoError(s.T(), s.bills.DeleteBill(s.ctx, admin, bill.ID))

	report, err := s.bills.GenerateDue(s.ctx, admin, time.Time{})
	require.NoError(s.T(), err)
	assert.Empty(s.T(), report.Generated)
}
