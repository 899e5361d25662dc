package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Fanelemenzi/pholli-compare/internal/comparison"
	"github.com/Fanelemenzi/pholli-compare/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, manager *comparison.Manager, version string) *Server {
	handler := NewHandler(repo, cache, bus, manager, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// Comparison
	router.Post("/compare", handler.Compare)

	// Surveys and their result sets
	router.Route("/surveys", func(r chi.Router) {
		r.Get("/", handler.ListSurveys)
		r.Post("/", handler.CreateSurvey)
		r.Get("/{id}", handler.GetSurvey)
		r.Put("/{id}", handler.UpdateSurvey)

		r.Get("/{id}/results", handler.GetSurveyResults)
		r.Get("/{id}/results/best", handler.GetBestMatches)
		r.Get("/{id}/results/summary", handler.GetRecommendationSummary)
		r.Get("/{id}/results/analysis", handler.GetSurveyAnalysis)
		r.Get("/{id}/results/{policyID}/explanation", handler.GetExplanation)
	})

	// Policies
	router.Route("/policies", func(r chi.Router) {
		r.Get("/", handler.ListPolicies)
		r.Post("/", handler.CreatePolicy)
		r.Get("/{id}", handler.GetPolicy)
		r.Put("/{id}", handler.UpdatePolicy)
		r.Put("/{id}/features", handler.UpdatePolicyFeatures)
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

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
