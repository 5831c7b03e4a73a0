package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rgehrsitz/paytax/internal/domain"
	"github.com/rgehrsitz/paytax/internal/payroll"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, svc *payroll.Service, repo domain.Repository, cache domain.Cache, version string) *Server {
	handler := NewHandler(svc, repo, cache, version)
	router := chi.NewRouter()

	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)

	// Health endpoint (no tenant required)
	router.Get("/health", handler.Health)

	router.Group(func(r chi.Router) {
		r.Use(TenantMiddleware)

		// Employee calculations
		r.Post("/employees/{employeeID}/calculations", handler.Calculate)
		r.Get("/employees/{employeeID}/calculations", handler.History)
		r.Get("/employees/{employeeID}/calculations/export", handler.ExportEmployeeHistory)
		r.Post("/employees/{employeeID}/schedule-calculations", handler.CalculateWithSchedule)
		r.Get("/calculations/{id}", handler.GetCalculation)

		// Schedule administration
		r.Route("/admin", func(r chi.Router) {
			r.Get("/brackets", handler.ListBrackets)
			r.Post("/brackets", handler.CreateBracket)
			r.Post("/brackets/seed", handler.SeedBrackets)
			r.Put("/brackets/{id}", handler.UpdateBracket)
			r.Delete("/brackets/{id}", handler.DeactivateBracket)
			r.Post("/brackets/{id}/activate", handler.ActivateBracket)
			r.Get("/schedule", handler.ActiveSchedule)
			r.Get("/audit", handler.AuditLog)
			r.Get("/reports", handler.Report)
			r.Get("/calculations/export", handler.ExportTenantHistory)
		})
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
