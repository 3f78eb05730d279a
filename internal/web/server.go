// Package web exposes a small read-only ops API next to the bot: health,
// stats, labels and the latest model version.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/kozaktomas/facebot/internal/config"
	"github.com/kozaktomas/facebot/internal/service"
)

// Server represents the ops web server.
type Server struct {
	svc        *service.Service
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer creates the ops web server.
func NewServer(cfg *config.WebConfig, svc *service.Service) *Server {
	r := chi.NewRouter()

	s := &Server{
		svc:    svc,
		router: r,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.healthz)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", s.getStats)
		r.Get("/labels", s.getLabels)
		r.Get("/model", s.getModel)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("starting ops server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down ops server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.GetStats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to collect stats")
		respondError(w, http.StatusInternalServerError, "failed to collect stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) getLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := s.svc.ListLabels(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list labels")
		respondError(w, http.StatusInternalServerError, "failed to list labels")
		return
	}
	if labels == nil {
		labels = []string{}
	}
	respondJSON(w, http.StatusOK, map[string][]string{"labels": labels})
}

func (s *Server) getModel(w http.ResponseWriter, r *http.Request) {
	model, err := s.svc.LatestModel(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to load model metadata")
		respondError(w, http.StatusInternalServerError, "failed to load model metadata")
		return
	}
	if model == nil {
		respondError(w, http.StatusNotFound, "no model trained")
		return
	}
	respondJSON(w, http.StatusOK, model)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
