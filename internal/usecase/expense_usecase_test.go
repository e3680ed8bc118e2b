package usecase

import (
	"errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itfintrack/itfintrack/internal/domain"
)

func (s *UseCaseTestSuite) TestCreateExpense_StartsPendingAndIsAudited() {
	expense := s.createExpense("250.00", date(2024, 1, 20))

	assert.Equal(s.T(), domain.ExpenseStatusPending, expense.Status)
	assert.Equal(s.T(), accountant.UserID, expense.CreatedBy)
	assert.Nil(s.T(), expense.RecurringBillID)

	entries := s.auditFor(domain.ResourceExpense, expense.ID)
	require.Len(s.T(), entries, 1)
	assert.Equal(s.T(), domain.AuditActionCreate, entries[0].Action)
	assert.Equal(s.T(), "250.00", entries[0].Metadata["amount"])
}

func (s *UseCaseTestSuite) TestCreateExpense_DefaultsToToday() {
	expense, err := s.expenses.CreateExpense(s.ctx, accountant, CreateExpenseRequest{
		CategoryID: s.category.ID,
		Amount:     money("10"),
	})
	require.NoError(s.T(), err)

	assert.Equal(s.T(), date(2024, 1, 31), expense.ExpenseDate)
}

func (s *UseCaseTestSuite) TestCreateExpense_Rejections() {
	missing := "missing"

	tests := []struct {
		name  string
		actor domain.Actor
		req   CreateExpenseRequest
		kind  domain.ErrorKind
	}{
		{
			name:  "viewer may not add",
			actor: viewer,
			req:   CreateExpenseRequest{CategoryID: s.category.ID, Amount: money("10")},
			kind:  domain.KindPermissionDenied,
		},
		{
			name:  "non positive amount",
			actor: accountant,
			req:   CreateExpenseRequest{CategoryID: s.category.ID, Amount: money("0")},
			kind:  domain.KindValidation,
		},
		{
			name:  "sub-cent amount",
			actor: accountant,
			req:   CreateExpenseRequest{CategoryID: s.category.ID, Amount: money("0.001")},
			kind:  domain.KindValidation,
		},
		{
			name:  "malformed date",
			actor: accountant,
			req:   CreateExpenseRequest{CategoryID: s.category.ID, Amount: money("10"), ExpenseDate: "31/01/2024"},
			kind:  domain.KindValidation,
		},
		{
			name:  "unknown category",
			actor: accountant,
			req:   CreateExpenseRequest{CategoryID: "missing", Amount: money("10")},
			kind:  domain.KindReferentialIntegrity,
		},
		{
			name:  "unknown vendor",
			actor: accountant,
			req:   CreateExpenseRequest{CategoryID: s.category.ID, VendorID: &missing, Amount: money("10")},
			kind:  domain.KindReferentialIntegrity,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.expenses.CreateExpense(s.ctx, tt.actor, tt.req)
			require.Error(s.T(), err)
			assert.Equal(s.T(), tt.kind, domain.KindOf(err))
		})
	}
}

func (s *UseCaseTestSuite) TestUpdateExpense_OnlyWhilePending() {
	expense := s.createExpense("100", date(2024, 1, 10))
	amount := money("120")
	description := "  Docking station "

	s.clock.set(date(2024, 2, 1))
	updated, err := s.expenses.UpdateExpense(s.ctx, accountant, expense.ID, UpdateExpenseRequest{
		Amount:      &amount,
		Description: &description,
	})
	require.NoError(s.T(), err)
	assert.True(s.T(), updated.Amount.Equal(amount))
	assert.Equal(s.T(), "Docking station", updated.Description)

	entries := s.auditFor(domain.ResourceExpense, expense.ID)
	require.Len(s.T(), entries, 2)
	assert.Equal(s.T(), "amount,description", entries[0].Metadata["fields"])

	_, err = s.approvals.Approve(s.ctx, manager, expense.ID, DecisionRequest{})
	require.NoError(s.T(), err)

	_, err = s.expenses.UpdateExpense(s.ctx, accountant, expense.ID, UpdateExpenseRequest{Amount: &amount})
	assert.True(s.T(), errors.Is(err, domain.ErrInvalidStateTransition))

	err = s.expenses.DeleteExpense(s.ctx, admin, expense.ID)
	assert.True(s.T(), errors.Is(err, domain.ErrInvalidStateTransition))
}

func (s *UseCaseTestSuite) TestUpdateExpense_RoundsAmount() {
	expense := s.createExpense("100", date(2024, 1, 10))

	tiny := money("0.004")
	_, err := s.expenses.UpdateExpense(s.ctx, accountant, expense.ID, UpdateExpenseRequest{Amount: &tiny})
	assert.Equal(s.T(), domain.KindValidation, domain.KindOf(err))

	precise := money("19.999")
	updated, err := s.expenses.UpdateExpense(s.ctx, accountant, expense.ID, UpdateExpenseRequest{Amount: &precise})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "20.00", updated.Amount.StringFixed(2))
	assert.True(s.T(), money("20").Equal(updated.Amount))

	bill := s.createBill("Hosting", "10.00", domain.CadenceMonthly, date(2024, 3, 1))
	_, err = s.bills.UpdateBill(s.ctx, accountant, bill.ID, UpdateBillRequest{Amount: &tiny})
	assert.Equal(s.T(), domain.KindValidation, domain.KindOf(err))
}

func (s *UseCaseTestSuite) TestUpdateExpense_NoChangesWritesNoAudit() {
	expense := s.createExpense("100", date(2024, 1, 10))

	_, err := s.expenses.UpdateExpense(s.ctx, accountant, expense.ID, UpdateExpenseRequest{})
	require.NoError(s.T(), err)

	assert.Len(s.T(), s.auditFor(domain.ResourceExpense, expense.ID), 1)
}

func (s *UseCaseTestSuite) TestDeleteExpense() {
	expense := s.createExpense("100", date(2024, 1, 10))

	err := s.expenses.DeleteExpense(s.ctx, accountant, expense.ID)
	assert.Equal(s.T(), domain.KindPermissionDenied, domain.KindOf(err))

	require.NoError(s.T(), s.expenses.DeleteExpense(s.ctx, admin, expense.ID))

	_, err = s.expenses.GetExpense(s.ctx, viewer, expense.ID)
	assert.True(s.T(), errors.Is(err, domain.ErrNotFound))
}

func (s *UseCaseTestSuite) TestListExpenses_FiltersAndPages() {
	s.createExpense("10", date(2024, 1, 5))
	s.createExpense("20", date(2024, 1, 6))
	approved := s.approvedExpense("30", date(2024, 1, 7))

	status := domain.ExpenseStatusApproved
	page, err := s.expenses.ListExpenses(s.ctx, viewer, domain.ExpenseFilter{Status: &status})
	require.NoError(s.T(), err)
	require.Len(s.T(), page.Expenses, 1)
	assert.Equal(s.T(), approved.ID, page.Expenses[0].ID)
	assert.Equal(s.T(), 1, page.Total)
	assert.Equal(s.T(), defaultPageSize, page.Limit)

	page, err = s.expenses.ListExpenses(s.ctx, viewer, domain.ExpenseFilter{Limit: 2})
	require.NoError(s.T(), err)
	assert.Len(s.T(), page.Expenses, 2)
	assert.Equal(s.T(), 3, page.Total)

	bogus := domain.ExpenseStatus("paid")
	_, err = s.expenses.ListExpenses(s.ctx, viewer, domain.ExpenseFilter{Status: &bogus})
	assert.Equal(s.T(), domain.KindValidation, domain.KindOf(err))
}

func (s *UseCaseTestSuite) TestCatalog_DeletedReferencesAreRefused() {
	category, err := s.catalog.CreateCategory(s.ctx, accountant, CreateCategoryRequest{Name: "Hardware"})
	require.NoError(s.T(), err)

	err = s.catalog.DeleteCategory(s.ctx, accountant, category.ID)
	assert.Equal(s.T(), domain.KindPermissionDenied, domain.KindOf(err))

	require.NoError(s.T(), s.catalog.DeleteCategory(s.ctx, admin, category.ID))
	err = s.catalog.DeleteCategory(s.ctx, admin, category.ID)
	assert.True(s.T(), errors.Is(err, domain.ErrNotFound))

	_, err = s.expenses.CreateExpense(s.ctx, accountant, CreateExpenseRequest{CategoryID: category.ID, Amount: money("5")})
	assert.True(s.T(), errors.Is(err, domain.ErrReferentialIntegrity))

	categories, err := s.catalog.ListCategories(s.ctx, viewer)
	require.NoError(s.T(), err)
	for _, c := range categories {
		assert.NotEqual(s.T(), category.ID, c.ID)
	}

	require.NoError(s.T(), s.catalog.DeleteVendor(s.ctx, admin, s.vendor.ID))
	vendors, err := s.catalog.ListVendors(s.ctx, viewer)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), vendors)

	_, err = s.catalog.CreateVendor(s.ctx, admin, CreateVendorRequest{Name: "  "})
	assert.Equal(s.T(), domain.KindValidation, domain.KindOf(err))
}
