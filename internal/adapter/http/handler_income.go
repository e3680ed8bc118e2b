package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/infra/logger"
	"github.com/itfintrack/itfintrack/internal/usecase"
)

// IncomeUseCase defines the income and payment operations the handler depends on
type IncomeUseCase interface {
	CreateSource(ctx context.Context, actor domain.Actor, req usecase.CreateIncomeSourceRequest) (*domain.IncomeSource, error)
	ListSources(ctx context.Context, actor domain.Actor) ([]*usecase.IncomeSourceView, error)
	Balance(ctx context.Context, actor domain.Actor, sourceID string) (*domain.Balance, error)
	RecordIncome(ctx context.Context, actor domain.Actor, sourceID string, req usecase.RecordIncomeRequest) (*domain.Income, error)
	ListIncomes(ctx context.Context, actor domain.Actor, sourceID string) ([]*domain.Income, error)
	RecordPayment(ctx context.Context, actor domain.Actor, req usecase.RecordPaymentRequest) (*domain.Payment, error)
	MarkReimbursed(ctx context.Context, actor domain.Actor, incomeID string, req usecase.MarkReimbursedRequest) (*domain.Income, error)
}

// IncomeHandler handles HTTP requests for income sources and payments
type IncomeHandler struct {
	incomes IncomeUseCase
	logger  logger.Logger
}

// NewIncomeHandler creates a new income handler
func NewIncomeHandler(incomes IncomeUseCase, log logger.Logger) *IncomeHandler {
	return &IncomeHandler{incomes: incomes, logger: log}
}

// RegisterRoutes registers income and payment routes
func (h *IncomeHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/income-sources", h.CreateSource).Methods("POST")
	router.HandleFunc("/income-sources", h.ListSources).Methods("GET")
	router.HandleFunc("/income-sources/{id}/balance", h.Balance).Methods("GET")
	router.HandleFunc("/income-sources/{id}/incomes", h.RecordIncome).Methods("POST")
	router.HandleFunc("/income-sources/{id}/incomes", h.ListIncomes).Methods("GET")
	router.HandleFunc("/incomes/{id}/reimburse", h.MarkReimbursed).Methods("POST")
	router.HandleFunc("/payments", h.RecordPayment).Methods("POST")
}

// CreateSource handles income source creation
func (h *IncomeHandler) CreateSource(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req usecase.CreateIncomeSourceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	source, err := h.incomes.CreateSource(r.Context(), actor, req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusCreated, "Income source created successfully", source)
}

// ListSources handles listing income sources with balances
func (h *IncomeHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	sources, err := h.incomes.ListSources(r.Context(), actor)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Income sources retrieved successfully", sources)
}

// Balance handles the allocated, consumed and remaining figures of a source
func (h *IncomeHandler) Balance(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	balance, err := h.incomes.Balance(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Balance retrieved successfully", balance)
}

// RecordIncome handles money received into a source
func (h *IncomeHandler) RecordIncome(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req usecase.RecordIncomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	income, err := h.incomes.RecordIncome(r.Context(), actor, mux.Vars(r)["id"], req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusCreated, "Income recorded successfully", income)
}

// ListIncomes handles listing a source's incomes
func (h *IncomeHandler) ListIncomes(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	incomes, err := h.incomes.ListIncomes(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Incomes retrieved successfully", incomes)
}

// RecordPayment handles paying an approved expense from a source
func (h *IncomeHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req usecase.RecordPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	payment, err := h.incomes.RecordPayment(r.Context(), actor, req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusCreated, "Payment recorded successfully", payment)
}

// MarkReimbursed handles settling a reimbursable income. An empty body means today.
func (h *IncomeHandler) MarkReimbursed(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req usecase.MarkReimbursedRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	income, err := h.incomes.MarkReimbursed(r.Context(), actor, mux.Vars(r)["id"], req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Income marked reimbursed", income)
}
