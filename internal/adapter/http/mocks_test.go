package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/infra/logger"
	"github.com/itfintrack/itfintrack/internal/ports"
	"github.com/itfintrack/itfintrack/internal/usecase"
)

// MockCatalogUseCase is a mock implementation of CatalogUseCase
type MockCatalogUseCase struct {
	mock.Mock
}

func (m *MockCatalogUseCase) CreateVendor(ctx context.Context, actor domain.Actor, req usecase.CreateVendorRequest) (*domain.Vendor, error) {
	args := m.Called(ctx, actor, req)
	v, _ := args.Get(0).(*domain.Vendor)
	return v, args.Error(1)
}

func (m *MockCatalogUseCase) ListVendors(ctx context.Context, actor domain.Actor) ([]*domain.Vendor, error) {
	args := m.Called(ctx, actor)
	v, _ := args.Get(0).([]*domain.Vendor)
	return v, args.Error(1)
}

func (m *MockCatalogUseCase) DeleteVendor(ctx context.Context, actor domain.Actor, id string) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockCatalogUseCase) CreateCategory(ctx context.Context, actor domain.Actor, req usecase.CreateCategoryRequest) (*domain.Category, error) {
	args := m.Called(ctx, actor, req)
	c, _ := args.Get(0).(*domain.Category)
	return c, args.Error(1)
}

func (m *MockCatalogUseCase) ListCategories(ctx context.Context, actor domain.Actor) ([]*domain.Category, error) {
	args := m.Called(ctx, actor)
	c, _ := args.Get(0).([]*domain.Category)
	return c, args.Error(1)
}

func (m *MockCatalogUseCase) DeleteCategory(ctx context.Context, actor domain.Actor, id string) error {
	return m.Called(ctx, actor, id).Error(0)
}

// MockExpenseUseCase is a mock implementation of ExpenseUseCase
type MockExpenseUseCase struct {
	mock.Mock
}

func (m *MockExpenseUseCase) CreateExpense(ctx context.Context, actor domain.Actor, req usecase.CreateExpenseRequest) (*domain.Expense, error) {
	args := m.Called(ctx, actor, req)
	e, _ := args.Get(0).(*domain.Expense)
	return e, args.Error(1)
}

func (m *MockExpenseUseCase) GetExpense(ctx context.Context, actor domain.Actor, id string) (*usecase.ExpenseDetail, error) {
	args := m.Called(ctx, actor, id)
	d, _ := args.Get(0).(*usecase.ExpenseDetail)
	return d, args.Error(1)
}

func (m *MockExpenseUseCase) ListExpenses(ctx context.Context, actor domain.Actor, filter domain.ExpenseFilter) (*usecase.ListExpensesResponse, error) {
	args := m.Called(ctx, actor, filter)
	r, _ := args.Get(0).(*usecase.ListExpensesResponse)
	return r, args.Error(1)
}

func (m *MockExpenseUseCase) UpdateExpense(ctx context.Context, actor domain.Actor, id string, req usecase.UpdateExpenseRequest) (*domain.Expense, error) {
	args := m.Called(ctx, actor, id, req)
	e, _ := args.Get(0).(*domain.Expense)
	return e, args.Error(1)
}

func (m *MockExpenseUseCase) DeleteExpense(ctx context.Context, actor domain.Actor, id string) error {
	return m.Called(ctx, actor, id).Error(0)
}

// MockApprovalUseCase is a mock implementation of ApprovalUseCase
type MockApprovalUseCase struct {
	mock.Mock
}

func (m *MockApprovalUseCase) Approve(ctx context.Context, actor domain.Actor, expenseID string, req usecase.DecisionRequest) (*domain.Expense, error) {
	args := m.Called(ctx, actor, expenseID, req)
	e, _ := args.Get(0).(*domain.Expense)
	return e, args.Error(1)
}

func (m *MockApprovalUseCase) Reject(ctx context.Context, actor domain.Actor, expenseID string, req usecase.DecisionRequest) (*domain.Expense, error) {
	args := m.Called(ctx, actor, expenseID, req)
	e, _ := args.Get(0).(*domain.Expense)
	return e, args.Error(1)
}

// MockBillUseCase is a mock implementation of BillUseCase
type MockBillUseCase struct {
	mock.Mock
}

func (m *MockBillUseCase) CreateBill(ctx context.Context, actor domain.Actor, req usecase.CreateBillRequest) (*domain.RecurringBill, error) {
	args := m.Called(ctx, actor, req)
	b, _ := args.Get(0).(*domain.RecurringBill)
	return b, args.Error(1)
}

func (m *MockBillUseCase) GetBill(ctx context.Context, actor domain.Actor, id string) (*usecase.BillView, error) {
	args := m.Called(ctx, actor, id)
	v, _ := args.Get(0).(*usecase.BillView)
	return v, args.Error(1)
}

func (m *MockBillUseCase) ListBills(ctx context.Context, actor domain.Actor, filter domain.BillFilter) ([]*usecase.BillView, error) {
	args := m.Called(ctx, actor, filter)
	v, _ := args.Get(0).([]*usecase.BillView)
	return v, args.Error(1)
}

func (m *MockBillUseCase) Upcoming(ctx context.Context, actor domain.Actor) ([]*usecase.BillView, error) {
	args := m.Called(ctx, actor)
	v, _ := args.Get(0).([]*usecase.BillView)
	return v, args.Error(1)
}

func (m *MockBillUseCase) UpdateBill(ctx context.Context, actor domain.Actor, id string, req usecase.UpdateBillRequest) (*domain.RecurringBill, error) {
	args := m.Called(ctx, actor, id, req)
	b, _ := args.Get(0).(*domain.RecurringBill)
	return b, args.Error(1)
}

func (m *MockBillUseCase) DeleteBill(ctx context.Context, actor domain.Actor, id string) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockBillUseCase) GenerateDue(ctx context.Context, actor domain.Actor, today time.Time) (*usecase.GenerationReport, error) {
	args := m.Called(ctx, actor, today)
	r, _ := args.Get(0).(*usecase.GenerationReport)
	return r, args.Error(1)
}

// MockIncomeUseCase is a mock implementation of IncomeUseCase
type MockIncomeUseCase struct {
	mock.Mock
}

func (m *MockIncomeUseCase) CreateSource(ctx context.Context, actor domain.Actor, req usecase.CreateIncomeSourceRequest) (*domain.IncomeSource, error) {
	args := m.Called(ctx, actor, req)
	s, _ := args.Get(0).(*domain.IncomeSource)
	return s, args.Error(1)
}

func (m *MockIncomeUseCase) ListSources(ctx context.Context, actor domain.Actor) ([]*usecase.IncomeSourceView, error) {
	args := m.Called(ctx, actor)
	s, _ := args.Get(0).([]*usecase.IncomeSourceView)
	return s, args.Error(1)
}

func (m *MockIncomeUseCase) Balance(ctx context.Context, actor domain.Actor, sourceID string) (*domain.Balance, error) {
	args := m.Called(ctx, actor, sourceID)
	b, _ := args.Get(0).(*domain.Balance)
	return b, args.Error(1)
}

func (m *MockIncomeUseCase) RecordIncome(ctx context.Context, actor domain.Actor, sourceID string, req usecase.RecordIncomeRequest) (*domain.Income, error) {
	args := m.Called(ctx, actor, sourceID, req)
	i, _ := args.Get(0).(*domain.Income)
	return i, args.Error(1)
}

func (m *MockIncomeUseCase) ListIncomes(ctx context.Context, actor domain.Actor, sourceID string) ([]*domain.Income, error) {
	args := m.Called(ctx, actor, sourceID)
	i, _ := args.Get(0).([]*domain.Income)
	return i, args.Error(1)
}

func (m *MockIncomeUseCase) RecordPayment(ctx context.Context, actor domain.Actor, req usecase.RecordPaymentRequest) (*domain.Payment, error) {
	args := m.Called(ctx, actor, req)
	p, _ := args.Get(0).(*domain.Payment)
	return p, args.Error(1)
}

func (m *MockIncomeUseCase) MarkReimbursed(ctx context.Context, actor domain.Actor, incomeID string, req usecase.MarkReimbursedRequest) (*domain.Income, error) {
	args := m.Called(ctx, actor, incomeID, req)
	i, _ := args.Get(0).(*domain.Income)
	return i, args.Error(1)
}

// MockLedgerUseCase is a mock implementation of LedgerUseCase
type MockLedgerUseCase struct {
	mock.Mock
}

func (m *MockLedgerUseCase) CreateLedger(ctx context.Context, actor domain.Actor, req usecase.CreateLedgerRequest) (*domain.Ledger, error) {
	args := m.Called(ctx, actor, req)
	l, _ := args.Get(0).(*domain.Ledger)
	return l, args.Error(1)
}

func (m *MockLedgerUseCase) ListLedgers(ctx context.Context, actor domain.Actor) ([]*domain.Ledger, error) {
	args := m.Called(ctx, actor)
	l, _ := args.Get(0).([]*domain.Ledger)
	return l, args.Error(1)
}

func (m *MockLedgerUseCase) GetLedger(ctx context.Context, actor domain.Actor, id string) (*usecase.LedgerView, error) {
	args := m.Called(ctx, actor, id)
	v, _ := args.Get(0).(*usecase.LedgerView)
	return v, args.Error(1)
}

func (m *MockLedgerUseCase) DeleteLedger(ctx context.Context, actor domain.Actor, id string) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockLedgerUseCase) AddEntry(ctx context.Context, actor domain.Actor, ledgerID string, req usecase.AddEntryRequest) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, actor, ledgerID, req)
	e, _ := args.Get(0).(*domain.LedgerEntry)
	return e, args.Error(1)
}

func (m *MockLedgerUseCase) ListEntries(ctx context.Context, actor domain.Actor, ledgerID string, filter domain.LedgerEntryFilter) ([]*domain.LedgerEntry, error) {
	args := m.Called(ctx, actor, ledgerID, filter)
	e, _ := args.Get(0).([]*domain.LedgerEntry)
	return e, args.Error(1)
}

// MockReportUseCase is a mock implementation of ReportUseCase
type MockReportUseCase struct {
	mock.Mock
}

func (m *MockReportUseCase) Monthly(ctx context.Context, actor domain.Actor, req usecase.MonthlyReportRequest) (*domain.MonthlyExpenseReport, error) {
	args := m.Called(ctx, actor, req)
	r, _ := args.Get(0).(*domain.MonthlyExpenseReport)
	return r, args.Error(1)
}

func (m *MockReportUseCase) Statement(ctx context.Context, actor domain.Actor, req usecase.StatementRequest) (*domain.Statement, error) {
	args := m.Called(ctx, actor, req)
	s, _ := args.Get(0).(*domain.Statement)
	return s, args.Error(1)
}

func (m *MockReportUseCase) MonthlyChart(ctx context.Context, actor domain.Actor, req usecase.MonthlyReportRequest, w io.Writer) error {
	args := m.Called(ctx, actor, req, w)
	if body, ok := args.Get(1).([]byte); ok && args.Error(0) == nil {
		w.Write(body)
	}
	return args.Error(0)
}

func (m *MockReportUseCase) Reimbursements(ctx context.Context, actor domain.Actor) (*domain.ReimbursementReport, error) {
	args := m.Called(ctx, actor)
	r, _ := args.Get(0).(*domain.ReimbursementReport)
	return r, args.Error(1)
}

func (m *MockReportUseCase) Dashboard(ctx context.Context, actor domain.Actor) (*domain.Dashboard, error) {
	args := m.Called(ctx, actor)
	d, _ := args.Get(0).(*domain.Dashboard)
	return d, args.Error(1)
}

// MockAuditUseCase is a mock implementation of AuditUseCase
type MockAuditUseCase struct {
	mock.Mock
}

func (m *MockAuditUseCase) List(ctx context.Context, actor domain.Actor, filter domain.AuditFilter) ([]*domain.AuditEntry, error) {
	args := m.Called(ctx, actor, filter)
	e, _ := args.Get(0).([]*domain.AuditEntry)
	return e, args.Error(1)
}

// stubTokens accepts "<role>-token" for every known role
type stubTokens struct{}

func (stubTokens) GenerateAccessToken(claims ports.TokenClaims) (string, error) {
	return string(claims.Role) + "-token", nil
}

func (stubTokens) ValidateAccessToken(token string) (*ports.TokenClaims, error) {
	role, err := domain.ParseRole(strings.TrimSuffix(token, "-token"))
	if err != nil || !strings.HasSuffix(token, "-token") {
		return nil, errors.New("invalid token")
	}
	return &ports.TokenClaims{UserID: string(role) + "-1", Username: string(role), Role: role}, nil
}

// stubLimiter allows the first n mutating calls
type stubLimiter struct {
	remaining int
	err       error
	keys      []string
}

func (l *stubLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return false, l.err
	}
	if l.remaining <= 0 {
		return false, nil
	}
	l.remaining--
	return true, nil
}

type testServer struct {
	catalog   *MockCatalogUseCase
	expenses  *MockExpenseUseCase
	approvals *MockApprovalUseCase
	bills     *MockBillUseCase
	incomes   *MockIncomeUseCase
	ledgers   *MockLedgerUseCase
	reports   *MockReportUseCase
	audit     *MockAuditUseCase
	limiter   *stubLimiter
	health    error
	handler   http.Handler
}

func newTestServer() *testServer {
	ts := &testServer{
		catalog:   &MockCatalogUseCase{},
		expenses:  &MockExpenseUseCase{},
		approvals: &MockApprovalUseCase{},
		bills:     &MockBillUseCase{},
		incomes:   &MockIncomeUseCase{},
		ledgers:   &MockLedgerUseCase{},
		reports:   &MockReportUseCase{},
		audit:     &MockAuditUseCase{},
		limiter:   &stubLimiter{remaining: 1000},
	}
	server := NewServer(ServerConfig{Addr: ":0"}, Services{
		Catalog:   ts.catalog,
		Expenses:  ts.expenses,
		Approvals: ts.approvals,
		Bills:     ts.bills,
		Incomes:   ts.incomes,
		Ledgers:   ts.ledgers,
		Reports:   ts.reports,
		Audit:     ts.audit,
		Health:    func(ctx context.Context) error { return ts.health },
	}, stubTokens{}, ts.limiter, logger.Discard())
	ts.handler = server.Handler()
	return ts
}

func newRequest(method, path, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(ts *testServer, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := newRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return serve(ts, req)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

var (
	adminActor      = domain.Actor{UserID: "admin-1", Role: domain.RoleAdmin}
	accountantActor = domain.Actor{UserID: "accountant-1", Role: domain.RoleAccountant}
	managerActor    = domain.Actor{UserID: "manager-1", Role: domain.RoleManager}
	viewerActor     = domain.Actor{UserID: "viewer-1", Role: domain.RoleViewer}
)
