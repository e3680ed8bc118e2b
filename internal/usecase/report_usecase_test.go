package usecase

import (
	"bytes"
	"errors"
	"io"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itfintrack/itfintrack/internal/domain"
)

type recordingChart struct {
	title string
	lines []domain.BreakdownLine
}

func (c *recordingChart) RenderBreakdown(w io.Writer, title string, lines []domain.BreakdownLine) error {
	c.title = title
	c.lines = lines
	_, err := w.Write([]byte("png"))
	return err
}

func (s *UseCaseTestSuite) TestMonthlyReportTotals() {
	hardware, err := s.catalog.CreateCategory(s.ctx, admin, CreateCategoryRequest{Name: "Hardware"})
	require.NoError(s.T(), err)

	s.createExpense("0.10", date(2024, time.January, 3))
	s.createExpense("0.20", date(2024, time.January, 4))
	_, err = s.expenses.CreateExpense(s.ctx, accountant, CreateExpenseRequest{
		CategoryID:  hardware.ID,
		VendorID:    &s.vendor.ID,
		Amount:      money("5.00"),
		ExpenseDate: "2024-01-31",
	})
	require.NoError(s.T(), err)
	s.createExpense("99.00", date(2024, time.February, 1))

	report, err := s.reports.Monthly(s.ctx, manager, MonthlyReportRequest{Year: 2024, Month: time.January})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 3, report.Count)
	assert.Equal(s.T(), "5.30", report.Total.StringFixed(2))
	require.Len(s.T(), report.ByCategory, 2)
	assert.Equal(s.T(), "Hardware", report.ByCategory[0].Label)
	assert.Equal(s.T(), "0.30", report.ByCategory[1].Total.StringFixed(2))
	assert.Len(s.T(), report.ByVendor, 2)
}

func (s *UseCaseTestSuite) TestMonthlyReportValidation() {
	_, err := s.reports.Monthly(s.ctx, viewer, MonthlyReportRequest{})
	assert.True(s.T(), errors.Is(err, domain.ErrPermissionDenied))

	_, err = s.reports.Monthly(s.ctx, admin, MonthlyReportRequest{Year: 2024, Month: 13})
	assert.True(s.T(), errors.Is(err, domain.ErrValidation))

	bad := domain.ExpenseStatus("paid")
	_, err = s.reports.Monthly(s.ctx, admin, MonthlyReportRequest{Status: &bad})
	assert.True(s.T(), errors.Is(err, domain.ErrValidation))
}

func (s *UseCaseTestSuite) TestStatementCountsApprovedExpensesOnly() {
	source := s.createSource("0.00")
	_, err := s.incomes.RecordIncome(s.ctx, accountant, source.ID, RecordIncomeRequest{Amount: money("500.00"), ReceivedOn: "2024-01-05"})
	require.NoError(s.T(), err)

	approved := s.approvedExpense("120.00", date(2024, time.January, 10))
	s.createExpense("80.00", date(2024, time.January, 11))
	_, err = s.incomes.RecordPayment(s.ctx, accountant, RecordPaymentRequest{
		IncomeSourceID: source.ID,
		ExpenseID:      approved.ID,
		Amount:         money("120.00"),
		PaidOn:         "2024-01-31",
	})
	require.NoError(s.T(), err)

	statement, err := s.reports.Statement(s.ctx, accountant, StatementRequest{From: "2024-01-01", To: "2024-01-31"})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "500.00", statement.TotalIncome.StringFixed(2))
	assert.Equal(s.T(), "120.00", statement.TotalExpenses.StringFixed(2))
	assert.Equal(s.T(), "120.00", statement.TotalPaid.StringFixed(2))
	assert.Equal(s.T(), "380.00", statement.Net.StringFixed(2))
	require.Len(s.T(), statement.BySource, 1)

	_, err = s.reports.Statement(s.ctx, accountant, StatementRequest{From: "2024-02-01", To: "2024-01-01"})
	assert.True(s.T(), errors.Is(err, domain.ErrValidation))
}

func (s *UseCaseTestSuite) TestMonthlyChartRendersCategories() {
	chart := &recordingChart{}
	reports := NewReportUseCase(Deps{Store: s.store, Clock: s.clock}, chart)
	s.createExpense("42.00", date(2024, time.January, 3))

	var buf bytes.Buffer
	require.NoError(s.T(), reports.MonthlyChart(s.ctx, admin, MonthlyReportRequest{}, &buf))
	assert.Equal(s.T(), "png", buf.String())
	assert.Contains(s.T(), chart.title, "January 2024")
	require.Len(s.T(), chart.lines, 1)
	assert.Equal(s.T(), "Software", chart.lines[0].Label)
}

func (s *UseCaseTestSuite) TestAuditListRequiresAuditPermission() {
	_, err := s.audits.List(s.ctx, accountant, domain.AuditFilter{})
	assert.True(s.T(), errors.Is(err, domain.ErrPermissionDenied))

	entries, err := s.audits.List(s.ctx, admin, domain.AuditFilter{ResourceType: domain.ResourceCategory})
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 1)
	assert.Equal(s.T(), s.category.ID, entries[0].ResourceID)
	assert.Equal(s.T(), domain.AuditActionCreate, entries[0].Action)
}

func (s *UseCaseTestSuite) TestReimbursementsTrackAdvances() {
	source := s.createSource("0.00")
	advance, err := s.incomes.RecordIncome(s.ctx, accountant, source.ID, RecordIncomeRequest{
		Amount: money("250.00"), ReceivedOn: "2024-01-05", Reference: "ADV-7", IsReimbursable: true,
	})
	require.NoError(s.T(), err)
	assert.True(s.T(), advance.IsReimbursable)

	other, err := s.incomes.RecordIncome(s.ctx, accountant, source.ID, RecordIncomeRequest{
		Amount: money("90.00"), ReceivedOn: "2024-01-06", IsReimbursable: true,
	})
	require.NoError(s.T(), err)
	plain, err := s.incomes.RecordIncome(s.ctx, accountant, source.ID, RecordIncomeRequest{Amount: money("40.00")})
	require.NoError(s.T(), err)

	report, err := s.reports.Reimbursements(s.ctx, manager)
	require.NoError(s.T(), err)
	assert.Len(s.T(), report.Pending, 2)
	assert.Empty(s.T(), report.Completed)
	assert.Equal(s.T(), "340.00", report.TotalPending.StringFixed(2))

	_, err = s.incomes.MarkReimbursed(s.ctx, viewer, advance.ID, MarkReimbursedRequest{})
	assert.Equal(s.T(), domain.KindPermissionDenied, domain.KindOf(err))

	_, err = s.incomes.MarkReimbursed(s.ctx, accountant, plain.ID, MarkReimbursedRequest{})
	assert.Equal(s.T(), domain.KindValidation, domain.KindOf(err))

	_, err = s.incomes.MarkReimbursed(s.ctx, accountant, advance.ID, MarkReimbursedRequest{ReimbursedOn: "2024-01-04"})
	assert.Equal(s.T(), domain.KindValidation, domain.KindOf(err))

	settled, err := s.incomes.MarkReimbursed(s.ctx, accountant, advance.ID, MarkReimbursedRequest{})
	require.NoError(s.T(), err)
	assert.True(s.T(), settled.Reimbursed)
	assert.Equal(s.T(), date(2024, time.January, 31), *settled.ReimbursedOn)

	_, err = s.incomes.MarkReimbursed(s.ctx, accountant, advance.ID, MarkReimbursedRequest{})
	assert.True(s.T(), errors.Is(err, domain.ErrConflict))

	entries := s.auditFor(domain.ResourceIncome, advance.ID)
	require.Len(s.T(), entries, 1)
	assert.Equal(s.T(), domain.AuditActionReimburse, entries[0].Action)
	assert.Equal(s.T(), "2024-01-31", entries[0].Metadata["reimbursed_on"])

	report, err = s.reports.Reimbursements(s.ctx, manager)
	require.NoError(s.T(), err)
	require.Len(s.T(), report.Pending, 1)
	assert.Equal(s.T(), other.ID, report.Pending[0].ID)
	require.Len(s.T(), report.Completed, 1)
	assert.Equal(s.T(), "250.00", report.TotalCompleted.StringFixed(2))

	_, err = s.reports.Reimbursements(s.ctx, viewer)
	assert.Equal(s.T(), domain.KindPermissionDenied, domain.KindOf(err))
}

func (s *UseCaseTestSuite) TestDashboardSummarizesActivity() {
	source := s.createSource("0.00")
	_, err := s.incomes.RecordIncome(s.ctx, accountant, source.ID, RecordIncomeRequest{
		Amount: money("400.00"), ReceivedOn: "2024-01-10", IsReimbursable: true,
	})
	require.NoError(s.T(), err)
	_, err = s.incomes.RecordIncome(s.ctx, accountant, source.ID, RecordIncomeRequest{Amount: money("200.00"), ReceivedOn: "2023-11-15"})
	require.NoError(s.T(), err)

	s.createExpense("100.00", date(2024, time.January, 20))
	s.approvedExpense("50.00", date(2023, time.December, 10))
	rejected := s.createExpense("30.00", date(2024, time.January, 5))
	_, err = s.approvals.Reject(s.ctx, manager, rejected.ID, DecisionRequest{Note: "duplicate"})
	require.NoError(s.T(), err)

	dashboard, err := s.reports.Dashboard(s.ctx, viewer)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), date(2024, time.January, 31), dashboard.AsOf)
	assert.Equal(s.T(), "600.00", dashboard.TotalIncome.StringFixed(2))
	assert.Equal(s.T(), "150.00", dashboard.TotalExpense.StringFixed(2))
	assert.Equal(s.T(), "450.00", dashboard.Balance.StringFixed(2))
	assert.Equal(s.T(), "400.00", dashboard.MonthIncome.StringFixed(2))
	assert.Equal(s.T(), "100.00", dashboard.MonthExpense.StringFixed(2))
	assert.Equal(s.T(), "400.00", dashboard.PendingReimbursements.StringFixed(2))
	assert.Equal(s.T(), 1, dashboard.PendingApprovals)

	require.Len(s.T(), dashboard.Trend, 6)
	assert.Equal(s.T(), "2023-08", dashboard.Trend[0].Month)
	assert.Equal(s.T(), "2023-11", dashboard.Trend[3].Month)
	assert.Equal(s.T(), "200.00", dashboard.Trend[3].Income.StringFixed(2))
	assert.Equal(s.T(), "50.00", dashboard.Trend[4].Expense.StringFixed(2))
	assert.Equal(s.T(), "2024-01", dashboard.Trend[5].Month)

	require.Len(s.T(), dashboard.TopCategories, 1)
	assert.Equal(s.T(), "Software", dashboard.TopCategories[0].Label)
	assert.Equal(s.T(), "100.00", dashboard.TopCategories[0].Total.StringFixed(2))

	assert.Len(s.T(), dashboard.RecentExpenses, 3)
	require.Len(s.T(), dashboard.RecentIncomes, 2)
	assert.Equal(s.T(), date(2024, time.January, 10), dashboard.RecentIncomes[0].ReceivedOn)
}

func (s *UseCaseTestSuite) TestDashboardOnEmptyStore() {
	dashboard, err := s.reports.Dashboard(s.ctx, viewer)
	require.NoError(s.T(), err)

	assert.True(s.T(), dashboard.Balance.IsZero())
	assert.Zero(s.T(), dashboard.PendingApprovals)
	assert.Len(s.T(), dashboard.Trend, 6)
	assert.NotNil(s.T(), dashboard.TopCategories)
	assert.NotNil(s.T(), dashboard.RecentExpenses)
	assert.NotNil(s.T(), dashboard.RecentIncomes)
}
