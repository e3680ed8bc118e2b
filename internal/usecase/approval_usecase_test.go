package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/ports"
)

// mockAuditRepository records audit writes and fails on demand
type mockAuditRepository struct {
	mock.Mock
}

func (m *mockAuditRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, error) {
	args := m.Called(ctx, filter)
	if v := args.Get(0); v != nil {
		return v.([]*domain.AuditEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

// auditOverrideStore swaps the audit repository inside every transaction
type auditOverrideStore struct {
	ports.Store
	audit ports.AuditRepository
}

func (s auditOverrideStore) WithTx(ctx context.Context, fn func(repos ports.Repositories) error) error {
	return s.Store.WithTx(ctx, func(repos ports.Repositories) error {
		repos.Audit = s.audit
		return fn(repos)
	})
}

func (s *UseCaseTestSuite) TestApproveWritesExactlyOneAuditEntry() {
	expense := s.createExpense("1200.00", date(2024, time.January, 20))
	s.clock.set(date(2024, time.January, 31).Add(10 * time.Hour))

	approved, err := s.approvals.Approve(s.ctx, manager, expense.ID, DecisionRequest{Note: "budgeted"})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), domain.ExpenseStatusApproved, approved.Status)
	require.NotNil(s.T(), approved.ApprovedBy)
	assert.Equal(s.T(), manager.UserID, *approved.ApprovedBy)

	action := domain.AuditActionApprove
	entries, err := s.repos.Audit.List(s.ctx, domain.AuditFilter{ResourceID: expense.ID, Action: &action, Limit: 10})
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 1)
	assert.Equal(s.T(), "pending", entries[0].Metadata["from"])
	assert.Equal(s.T(), "approved", entries[0].Metadata["to"])
	assert.Equal(s.T(), "budgeted", entries[0].Metadata["note"])
	assert.Equal(s.T(), domain.RoleManager, entries[0].ActorRole)

	stored, err := s.repos.Expenses.FindByID(s.ctx, expense.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), domain.ExpenseStatusApproved, stored.Status)
	require.NotNil(s.T(), stored.DecidedAt)
}

func (s *UseCaseTestSuite) TestRejectAllowsEmptyReason() {
	expense := s.createExpense("80.00", date(2024, time.January, 20))

	rejected, err := s.approvals.Reject(s.ctx, admin, expense.ID, DecisionRequest{})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), domain.ExpenseStatusRejected, rejected.Status)
}

func (s *UseCaseTestSuite) TestTerminalExpensesRefuseTransitions() {
	tests := []struct {
		name   string
		first  domain.ExpenseStatus
		second domain.ExpenseStatus
	}{
		{"approved then rejected", domain.ExpenseStatusApproved, domain.ExpenseStatusRejected},
		{"approved then approved", domain.ExpenseStatusApproved, domain.ExpenseStatusApproved},
		{"rejected then approved", domain.ExpenseStatusRejected, domain.ExpenseStatusApproved},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			expense := s.createExpense("10.00", date(2024, time.January, 20))
			_, err := s.approvals.Transition(s.ctx, admin, expense.ID, tt.first, "")
			require.NoError(s.T(), err)

			before := len(s.auditFor(domain.ResourceExpense, expense.ID))

			_, err = s.approvals.Transition(s.ctx, admin, expense.ID, tt.second, "")
			assert.True(s.T(), errors.Is(err, domain.ErrInvalidStateTransition), "got %v", err)
			assert.Len(s.T(), s.auditFor(domain.ResourceExpense, expense.ID), before)

			stored, err := s.repos.Expenses.FindByID(s.ctx, expense.ID)
			require.NoError(s.T(), err)
			assert.Equal(s.T(), tt.first, stored.Status)
		})
	}
}

func (s *UseCaseTestSuite) TestOnlyApproversDecide() {
	expense := s.createExpense("10.00", date(2024, time.January, 20))

	for _, actor := range []domain.Actor{accountant, viewer, {UserID: "exec", Role: domain.RoleExecutive}} {
		_, err := s.approvals.Approve(s.ctx, actor, expense.ID, DecisionRequest{})
		assert.True(s.T(), errors.Is(err, domain.ErrPermissionDenied), "role %s", actor.Role)
	}

	stored, err := s.repos.Expenses.FindByID(s.ctx, expense.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), domain.ExpenseStatusPending, stored.Status)
}

func (s *UseCaseTestSuite) TestApproveMissingExpense() {
	_, err := s.approvals.Approve(s.ctx, admin, "missing", DecisionRequest{})
	assert.True(s.T(), errors.Is(err, domain.ErrNotFound))
}

func (s *UseCaseTestSuite) TestAuditFailureRollsBackDecision() {
	expense := s.createExpense("10.00", date(2024, time.January, 20))

	auditRepo := new(mockAuditRepository)
	auditRepo.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.AuditEntry) bool {
		return e.ResourceID == expense.ID && e.Action == domain.AuditActionApprove
	})).Return(errors.New("disk full")).Once()

	approvals := NewApprovalUseCase(Deps{Store: auditOverrideStore{Store: s.store, audit: auditRepo}, Clock: s.clock})
	_, err := approvals.Approve(s.ctx, admin, expense.ID, DecisionRequest{})
	require.Error(s.T(), err)
	auditRepo.AssertExpectations(s.T())

	stored, err := s.repos.Expenses.FindByID(s.ctx, expense.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), domain.ExpenseStatusPending, stored.Status)
}

func (s *UseCaseTestSuite) TestDecidedExpenseIsImmutable() {
	expense := s.approvedExpense("10.00", date(2024, time.January, 20))
	amount := money("1.00")

	_, err := s.expenses.UpdateExpense(s.ctx, admin, expense.ID, UpdateExpenseRequest{Amount: &amount})
	assert.True(s.T(), errors.Is(err, domain.ErrInvalidStateTransition))

	err = s.expenses.DeleteExpense(s.ctx, admin, expense.ID)
	assert.True(s.T(), errors.Is(err, domain.ErrInvalidStateTransition))
}
