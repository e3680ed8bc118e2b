package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/infra/logger"
	"github.com/itfintrack/itfintrack/internal/usecase"
)

// BillUseCase defines the recurring bill operations the handler depends on
type BillUseCase interface {
	CreateBill(ctx context.Context, actor domain.Actor, req usecase.CreateBillRequest) (*domain.RecurringBill, error)
	GetBill(ctx context.Context, actor domain.Actor, id string) (*usecase.BillView, error)
	ListBills(ctx context.Context, actor domain.Actor, filter domain.BillFilter) ([]*usecase.BillView, error)
	Upcoming(ctx context.Context, actor domain.Actor) ([]*usecase.BillView, error)
	UpdateBill(ctx context.Context, actor domain.Actor, id string, req usecase.UpdateBillRequest) (*domain.RecurringBill, error)
	DeleteBill(ctx context.Context, actor domain.Actor, id string) error
	GenerateDue(ctx context.Context, actor domain.Actor, today time.Time) (*usecase.GenerationReport, error)
}

// BillHandler handles HTTP requests for recurring bills
type BillHandler struct {
	bills  BillUseCase
	logger logger.Logger
}

// NewBillHandler creates a new bill handler
func NewBillHandler(bills BillUseCase, log logger.Logger) *BillHandler {
	return &BillHandler{bills: bills, logger: log}
}

// RegisterRoutes registers bill routes; the fixed paths come before /bills/{id}
func (h *BillHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/bills/upcoming", h.Upcoming).Methods("GET")
	router.HandleFunc("/bills/generate", h.Generate).Methods("POST")
	router.HandleFunc("/bills", h.CreateBill).Methods("POST")
	router.HandleFunc("/bills", h.ListBills).Methods("GET")
	router.HandleFunc("/bills/{id}", h.GetBill).Methods("GET")
	router.HandleFunc("/bills/{id}", h.UpdateBill).Methods("PATCH")
	router.HandleFunc("/bills/{id}", h.DeleteBill).Methods("DELETE")
}

// CreateBill handles recurring bill creation
func (h *BillHandler) CreateBill(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req usecase.CreateBillRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	bill, err := h.bills.CreateBill(r.Context(), actor, req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusCreated, "Recurring bill created successfully", bill)
}

// GetBill handles retrieving one bill with its status
func (h *BillHandler) GetBill(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	view, err := h.bills.GetBill(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Recurring bill retrieved successfully", view)
}

// ListBills handles listing bills
func (h *BillHandler) ListBills(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	filter := domain.BillFilter{ActiveOnly: r.URL.Query().Get("active") == "true"}
	var err error
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	views, err := h.bills.ListBills(r.Context(), actor, filter)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Recurring bills retrieved successfully", views)
}

// Upcoming handles the dashboard alert list
func (h *BillHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	views, err := h.bills.Upcoming(r.Context(), actor)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Upcoming bills retrieved successfully", views)
}

// UpdateBill handles editing a bill
func (h *BillHandler) UpdateBill(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req usecase.UpdateBillRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	bill, err := h.bills.UpdateBill(r.Context(), actor, mux.Vars(r)["id"], req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Recurring bill updated successfully", bill)
}

// DeleteBill handles soft deleting a bill
func (h *BillHandler) DeleteBill(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	if err := h.bills.DeleteBill(r.Context(), actor, mux.Vars(r)["id"]); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Recurring bill deleted successfully", nil)
}

// Generate runs expense generation on demand for the current day
func (h *BillHandler) Generate(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	report, err := h.bills.GenerateDue(r.Context(), actor, time.Time{})
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Generation completed", report)
}
