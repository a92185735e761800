package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/snapvault/internal/config"
	"github.com/snapvault/internal/restore"
	"github.com/snapvault/internal/store"
	"github.com/snapvault/internal/version"
)

// Server represents the HTTP server
type Server struct {
	*http.Server
	router chi.Router
	repo   *version.Repository
	orch   *restore.Orchestrator
	store  store.Store
}

// NewServer creates a new HTTP server with all routes configured
func NewServer(cfg config.ServerConfig, repo *version.Repository, orch *restore.Orchestrator, st store.Store) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		Server: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler: r,
		},
		router: r,
		repo:   repo,
		orch:   orch,
		store:  st,
	}

	// Setup routes
	s.setupRoutes()

	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))

		// Health check
		r.Get("/health", s.handleHealth)

		// Documents (guest-mode live documents)
		r.Put("/documents/{documentID}", s.handleUpsertDocument)
		r.Get("/documents/{documentID}", s.handleGetDocument)

		// Versions
		r.Get("/documents/{documentID}/versions", s.handleListVersions)
		r.Post("/documents/{documentID}/versions", s.handleCreateVersion)
		r.Get("/documents/{documentID}/versions/{versionNumber}", s.handleGetVersion)
		r.Get("/documents/{documentID}/versions/{versionNumber}/preview", s.handlePreview)

		// Restore protocol
		r.Post("/documents/{documentID}/versions/{versionID}/restore", s.handleRestore)
		r.Post("/documents/{documentID}/restore/confirm", s.handleConfirmRestore)
		r.Post("/documents/{documentID}/restore/cancel", s.handleCancelRestore)
		r.Post("/documents/{documentID}/restore/dismiss", s.handleDismissRestore)
		r.Delete("/documents/{documentID}/panel", s.handleClosePanel)
	})
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}
