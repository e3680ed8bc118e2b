package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/infra/logger"
	"github.com/itfintrack/itfintrack/internal/usecase"
)

// ExpenseUseCase defines the expense operations the handler depends on
type ExpenseUseCase interface {
	CreateExpense(ctx context.Context, actor domain.Actor, req usecase.CreateExpenseRequest) (*domain.Expense, error)
	GetExpense(ctx context.Context, actor domain.Actor, id string) (*usecase.ExpenseDetail, error)
	ListExpenses(ctx context.Context, actor domain.Actor, filter domain.ExpenseFilter) (*usecase.ListExpensesResponse, error)
	UpdateExpense(ctx context.Context, actor domain.Actor, id string, req usecase.UpdateExpenseRequest) (*domain.Expense, error)
	DeleteExpense(ctx context.Context, actor domain.Actor, id string) error
}

// ApprovalUseCase defines the approval workflow the handler depends on
type ApprovalUseCase interface {
	Approve(ctx context.Context, actor domain.Actor, expenseID string, req usecase.DecisionRequest) (*domain.Expense, error)
	Reject(ctx context.Context, actor domain.Actor, expenseID string, req usecase.DecisionRequest) (*domain.Expense, error)
}

// ExpenseHandler handles HTTP requests for expenses and their approval
type ExpenseHandler struct {
	expenses  ExpenseUseCase
	approvals ApprovalUseCase
	logger    logger.Logger
}

// NewExpenseHandler creates a new expense handler
func NewExpenseHandler(expenses ExpenseUseCase, approvals ApprovalUseCase, log logger.Logger) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses, approvals: approvals, logger: log}
}

// RegisterRoutes registers expense routes
func (h *ExpenseHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/expenses", h.CreateExpense).Methods("POST")
	router.HandleFunc("/expenses", h.ListExpenses).Methods("GET")
	router.HandleFunc("/expenses/{id}", h.GetExpense).Methods("GET")
	router.HandleFunc("/expenses/{id}", h.UpdateExpense).Methods("PATCH")
	router.HandleFunc("/expenses/{id}", h.DeleteExpense).Methods("DELETE")
	router.HandleFunc("/expenses/{id}/approve", h.ApproveExpense).Methods("POST")
	router.HandleFunc("/expenses/{id}/reject", h.RejectExpense).Methods("POST")
}

// CreateExpense handles manual expense creation
func (h *ExpenseHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req usecase.CreateExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	expense, err := h.expenses.CreateExpense(r.Context(), actor, req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusCreated, "Expense created successfully", expense)
}

// GetExpense handles retrieving one expense
func (h *ExpenseHandler) GetExpense(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	detail, err := h.expenses.GetExpense(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Expense retrieved successfully", detail)
}

// ListExpenses handles listing expenses with filters
func (h *ExpenseHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	filter, err := parseExpenseFilter(r)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	response, err := h.expenses.ListExpenses(r.Context(), actor, filter)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Expenses retrieved successfully", response)
}

func parseExpenseFilter(r *http.Request) (domain.ExpenseFilter, error) {
	var filter domain.ExpenseFilter
	var err error

	if status := queryString(r, "status"); status != nil {
		s := domain.ExpenseStatus(*status)
		filter.Status = &s
	}
	filter.CategoryID = queryString(r, "category_id")
	filter.RecurringBillID = queryString(r, "recurring_bill_id")

	if from := queryString(r, "from"); from != nil {
		d, err := domain.ParseDate("from", *from)
		if err != nil {
			return filter, err
		}
		filter.From = &d
	}
	if to := queryString(r, "to"); to != nil {
		d, err := domain.ParseDate("to", *to)
		if err != nil {
			return filter, err
		}
		filter.To = &d
	}

	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		return filter, err
	}
	return filter, nil
}

// UpdateExpense handles editing a pending expense
func (h *ExpenseHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req usecase.UpdateExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	expense, err := h.expenses.UpdateExpense(r.Context(), actor, mux.Vars(r)["id"], req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Expense updated successfully", expense)
}

// DeleteExpense handles soft deleting a pending expense
func (h *ExpenseHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	if err := h.expenses.DeleteExpense(r.Context(), actor, mux.Vars(r)["id"]); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Expense deleted successfully", nil)
}

// ApproveExpense handles the pending to approved transition
func (h *ExpenseHandler) ApproveExpense(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.approvals.Approve, "Expense approved successfully")
}

// RejectExpense handles the pending to rejected transition
func (h *ExpenseHandler) RejectExpense(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.approvals.Reject, "Expense rejected successfully")
}

type decisionFunc func(ctx context.Context, actor domain.Actor, expenseID string, req usecase.DecisionRequest) (*domain.Expense, error)

func (h *ExpenseHandler) decide(w http.ResponseWriter, r *http.Request, decide decisionFunc, message string) {
	actor, _ := actorFrom(r.Context())

	var req usecase.DecisionRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	expense, err := decide(r.Context(), actor, mux.Vars(r)["id"], req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, message, expense)
}
