package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/infra/logger"
	"github.com/itfintrack/itfintrack/internal/usecase"
)

// CatalogUseCase defines the vendor and category operations the handler depends on
type CatalogUseCase interface {
	CreateVendor(ctx context.Context, actor domain.Actor, req usecase.CreateVendorRequest) (*domain.Vendor, error)
	ListVendors(ctx context.Context, actor domain.Actor) ([]*domain.Vendor, error)
	DeleteVendor(ctx context.Context, actor domain.Actor, id string) error
	CreateCategory(ctx context.Context, actor domain.Actor, req usecase.CreateCategoryRequest) (*domain.Category, error)
	ListCategories(ctx context.Context, actor domain.Actor) ([]*domain.Category, error)
	DeleteCategory(ctx context.Context, actor domain.Actor, id string) error
}

// CatalogHandler handles HTTP requests for vendors and categories
type CatalogHandler struct {
	catalog CatalogUseCase
	logger  logger.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog CatalogUseCase, log logger.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: log}
}

// RegisterRoutes registers vendor and category routes
func (h *CatalogHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/vendors", h.CreateVendor).Methods("POST")
	router.HandleFunc("/vendors", h.ListVendors).Methods("GET")
	router.HandleFunc("/vendors/{id}", h.DeleteVendor).Methods("DELETE")

	router.HandleFunc("/categories", h.CreateCategory).Methods("POST")
	router.HandleFunc("/categories", h.ListCategories).Methods("GET")
	router.HandleFunc("/categories/{id}", h.DeleteCategory).Methods("DELETE")
}

// CreateVendor handles vendor creation
func (h *CatalogHandler) CreateVendor(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req usecase.CreateVendorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	vendor, err := h.catalog.CreateVendor(r.Context(), actor, req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusCreated, "Vendor created successfully", vendor)
}

// ListVendors handles listing vendors
func (h *CatalogHandler) ListVendors(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	vendors, err := h.catalog.ListVendors(r.Context(), actor)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if vendors == nil {
		vendors = []*domain.Vendor{}
	}

	writeSuccessResponse(w, http.StatusOK, "Vendors retrieved successfully", vendors)
}

// DeleteVendor handles vendor soft deletion
func (h *CatalogHandler) DeleteVendor(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	if err := h.catalog.DeleteVendor(r.Context(), actor, mux.Vars(r)["id"]); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Vendor deleted successfully", nil)
}

// CreateCategory handles category creation
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req usecase.CreateCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	category, err := h.catalog.CreateCategory(r.Context(), actor, req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusCreated, "Category created successfully", category)
}

// ListCategories handles listing categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	categories, err := h.catalog.ListCategories(r.Context(), actor)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if categories == nil {
		categories = []*domain.Category{}
	}

	writeSuccessResponse(w, http.StatusOK, "Categories retrieved successfully", categories)
}

// DeleteCategory handles category soft deletion
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	if err := h.catalog.DeleteCategory(r.Context(), actor, mux.Vars(r)["id"]); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Category deleted successfully", nil)
}
