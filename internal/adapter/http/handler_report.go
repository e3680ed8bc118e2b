package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/infra/logger"
	"github.com/itfintrack/itfintrack/internal/usecase"
)

// ReportUseCase defines the report operations the handler depends on
type ReportUseCase interface {
	Monthly(ctx context.Context, actor domain.Actor, req usecase.MonthlyReportRequest) (*domain.MonthlyExpenseReport, error)
	Statement(ctx context.Context, actor domain.Actor, req usecase.StatementRequest) (*domain.Statement, error)
	MonthlyChart(ctx context.Context, actor domain.Actor, req usecase.MonthlyReportRequest, w io.Writer) error
	Reimbursements(ctx context.Context, actor domain.Actor) (*domain.ReimbursementReport, error)
	Dashboard(ctx context.Context, actor domain.Actor) (*domain.Dashboard, error)
}

// AuditUseCase defines the audit trail reader the handler depends on
type AuditUseCase interface {
	List(ctx context.Context, actor domain.Actor, filter domain.AuditFilter) ([]*domain.AuditEntry, error)
}

// ReportHandler handles reports, the audit trail and the caller's permissions
type ReportHandler struct {
	reports ReportUseCase
	audits  AuditUseCase
	logger  logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports ReportUseCase, audits AuditUseCase, log logger.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, audits: audits, logger: log}
}

// RegisterRoutes registers report, dashboard, audit and permission routes
func (h *ReportHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/reports/monthly", h.Monthly).Methods("GET")
	router.HandleFunc("/reports/monthly/chart.png", h.MonthlyChart).Methods("GET")
	router.HandleFunc("/reports/statement", h.Statement).Methods("GET")
	router.HandleFunc("/reports/reimbursements", h.Reimbursements).Methods("GET")
	router.HandleFunc("/dashboard", h.Dashboard).Methods("GET")
	router.HandleFunc("/audit", h.ListAudit).Methods("GET")
	router.HandleFunc("/permissions", h.Permissions).Methods("GET")
}

func parseMonthlyRequest(r *http.Request) (usecase.MonthlyReportRequest, error) {
	var req usecase.MonthlyReportRequest

	year, err := queryInt(r, "year", 0)
	if err != nil {
		return req, err
	}
	month, err := queryInt(r, "month", 0)
	if err != nil {
		return req, err
	}
	req.Year = year
	req.Month = time.Month(month)

	if status := queryString(r, "status"); status != nil {
		s := domain.ExpenseStatus(*status)
		req.Status = &s
	}
	return req, nil
}

// Monthly handles the monthly expense report
func (h *ReportHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	req, err := parseMonthlyRequest(r)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	report, err := h.reports.Monthly(r.Context(), actor, req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Monthly report generated successfully", report)
}

// MonthlyChart handles the category pie chart of a month
func (h *ReportHandler) MonthlyChart(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	req, err := parseMonthlyRequest(r)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	// buffered so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := h.reports.MonthlyChart(r.Context(), actor, req, &buf); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Statement handles the income versus expense statement
func (h *ReportHandler) Statement(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	statement, err := h.reports.Statement(r.Context(), actor, usecase.StatementRequest{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
	})
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Statement generated successfully", statement)
}

// ListAudit handles reading the audit trail
func (h *ReportHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	q := r.URL.Query()
	filter := domain.AuditFilter{
		ResourceType: q.Get("resource_type"),
		ResourceID:   q.Get("resource_id"),
		ActorID:      q.Get("actor_id"),
	}
	if action := queryString(r, "action"); action != nil {
		a := domain.AuditAction(*action)
		filter.Action = &a
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

	entries, err := h.audits.List(r.Context(), actor, filter)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Audit entries retrieved successfully", entries)
}

// Permissions returns the caller's row of the permission table
func (h *ReportHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	if err := actor.Require(domain.ActionView); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Permissions retrieved successfully", map[string]interface{}{
		"user_id":     actor.UserID,
		"role":        actor.Role,
		"permissions": domain.PermissionsFor(actor.Role),
	})
}

// Reimbursements handles the outstanding and settled reimbursable incomes
func (h *ReportHandler) Reimbursements(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	report, err := h.reports.Reimbursements(r.Context(), actor)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Reimbursement report generated successfully", report)
}

// Dashboard handles the financial overview
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	dashboard, err := h.reports.Dashboard(r.Context(), actor)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	writeSuccessResponse(w, http.StatusOK, "Dashboard retrieved successfully", dashboard)
}
