// Package api provides the HTTP surface of the analyzer.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-security/shrike/internal/domain"
	"github.com/opensource-security/shrike/internal/pipeline"
	"github.com/opensource-security/shrike/internal/rules"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, p *pipeline.Pipeline, repo domain.Repository, cache domain.Cache, rulesEngine *rules.Engine, version string) *Server {
	handler := NewHandler(p, repo, cache, rulesEngine, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	// Health endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// URL analysis
	router.Post("/analyze", handler.Analyze)
	router.Post("/analyze/batch", handler.AnalyzeBatch)

	// Stored results
	router.Get("/analyses", handler.ListAnalyses)
	router.Get("/analyses/{id}", handler.GetAnalysis)

	// Scoring configuration
	router.Get("/weights", handler.GetWeights)
	router.Put("/weights", handler.UpdateWeights)
	router.Get("/brands", handler.GetBrands)

	// Alert rule management
	router.Get("/rules", handler.ListRules)
	router.Get("/rules/{id}", handler.GetRule)
	router.Post("/rules", handler.CreateRule)
	router.Put("/rules/{id}", handler.UpdateRule)
	router.Delete("/rules/{id}", handler.DeleteRule)
	router.Post("/rules/reload", handler.ReloadRules)

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

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
