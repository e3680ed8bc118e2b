package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/infra/logger"
	"github.com/itfintrack/itfintrack/internal/usecase"
)

// LedgerUseCase defines the ledger operations the handler depends on
type LedgerUseCase interface {
	CreateLedger(ctx context.Context, actor domain.Actor, req usecase.CreateLedgerRequest) (*domain.Ledger, error)
	ListLedgers(ctx context.Context, actor domain.Actor) ([]*domain.Ledger, error)
	GetLedger(ctx context.Context, actor domain.Actor, id string) (*usecase.LedgerView, error)
	DeleteLedger(ctx context.Context, actor domain.Actor, id string) error
	AddEntry(ctx context.Context, actor domain.Actor, ledgerID string, req usecase.AddEntryRequest) (*domain.LedgerEntry, error)
	ListEntries(ctx context.Context, actor domain.Actor, ledgerID string, filter domain.LedgerEntryFilter) ([]*domain.LedgerEntry, error)
}

// LedgerHandler handles HTTP requests for advance ledgers
type LedgerHandler struct {
	ledgers LedgerUseCase
	logger  logger.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(ledgers LedgerUseCase, log logger.Logger) *LedgerHandler {
	return &LedgerHandler{ledgers: ledgers, logger: log}
}

// RegisterRoutes registers ledger routes
func (h *LedgerHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ledgers", h.Create).Methods("POST")
	router.HandleFunc("/ledgers", h.List).Methods("GET")
	router.HandleFunc("/ledgers/{id}", h.Get).Methods("GET")
	router.HandleFunc("/ledgers/{id}", h.Delete).Methods("DELETE")
	router.HandleFunc("/ledgers/{id}/entries", h.AddEntry).Methods("POST")
	router.HandleFunc("/ledgers/{id}/entries", h.ListEntries).Methods("GET")
}

// Create handles opening a ledger
func (h *LedgerHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req usecase.CreateLedgerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	ledger, err := h.ledgers.CreateLedger(r.Context(), actor, req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusCreated, "Ledger created successfully", ledger)
}

// List handles listing the caller's ledgers
func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	ledgers, err := h.ledgers.ListLedgers(r.Context(), actor)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Ledgers retrieved successfully", ledgers)
}

// Get handles a ledger with its balances
func (h *LedgerHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	view, err := h.ledgers.GetLedger(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Ledger retrieved successfully", view)
}

// Delete handles ledger deletion
func (h *LedgerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	if err := h.ledgers.DeleteLedger(r.Context(), actor, mux.Vars(r)["id"]); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Ledger deleted successfully", nil)
}

// AddEntry handles recording a ledger entry
func (h *LedgerHandler) AddEntry(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req usecase.AddEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	entry, err := h.ledgers.AddEntry(r.Context(), actor, mux.Vars(r)["id"], req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusCreated, "Ledger entry recorded successfully", entry)
}

// ListEntries handles listing a ledger's entries
func (h *LedgerHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var filter domain.LedgerEntryFilter
	if entryType := queryString(r, "entry_type"); entryType != nil {
		t := domain.LedgerEntryType(*entryType)
		filter.Type = &t
	}

	var err error
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	entries, err := h.ledgers.ListEntries(r.Context(), actor, mux.Vars(r)["id"], filter)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Ledger entries retrieved successfully", entries)
}
