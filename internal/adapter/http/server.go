package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/itfintrack/itfintrack/internal/infra/logger"
	"github.com/itfintrack/itfintrack/internal/ports"
)

// Server represents the HTTP server
type Server struct {
	addr   string
	logger logger.Logger
	router http.Handler
	server *http.Server
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

// Services are the use cases exposed over HTTP
type Services struct {
	Catalog   CatalogUseCase
	Expenses  ExpenseUseCase
	Approvals ApprovalUseCase
	Bills     BillUseCase
	Incomes   IncomeUseCase
	Ledgers   LedgerUseCase
	Reports   ReportUseCase
	Audit     AuditUseCase

	// Health reports whether the backing store is reachable; nil means always healthy
	Health func(ctx context.Context) error
}

// NewServer creates a new HTTP server
func NewServer(
	config ServerConfig,
	services Services,
	tokens ports.TokenService,
	limiter ports.RateLimiter,
	log logger.Logger,
) *Server {
	router := mux.NewRouter()
	router.HandleFunc("/health", healthHandler(services.Health)).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware(tokens, log))
	api.Use(rateLimitMiddleware(limiter, log))

	NewCatalogHandler(services.Catalog, log).RegisterRoutes(api)
	NewExpenseHandler(services.Expenses, services.Approvals, log).RegisterRoutes(api)
	NewBillHandler(services.Bills, log).RegisterRoutes(api)
	NewIncomeHandler(services.Incomes, log).RegisterRoutes(api)
	NewLedgerHandler(services.Ledgers, log).RegisterRoutes(api)
	NewReportHandler(services.Reports, services.Audit, log).RegisterRoutes(api)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	// Router-level middleware only runs on matched routes, so the outer chain wraps the router.
	var handler http.Handler = router
	handler = corsMiddleware(config.CORSOrigins)(handler)
	handler = recoveryMiddleware(log)(handler)
	handler = loggingMiddleware(log)(handler)
	handler = correlationMiddleware(handler)

	return &Server{
		addr:   config.Addr,
		logger: log,
		router: handler,
		server: &http.Server{
			Addr:         config.Addr,
			Handler:      handler,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}
}

// Handler returns the fully wrapped router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "Starting HTTP server", map[string]interface{}{"addr": s.addr})
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				writeErrorResponse(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Database unreachable", nil)
				return
			}
		}
		writeSuccessResponse(w, http.StatusOK, "ok", map[string]string{"status": "ok"})
	}
}
