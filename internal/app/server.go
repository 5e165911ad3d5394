package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/Dossier/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/Dossier/internal/api/middlewares"
	"github.com/markdave123-py/Dossier/internal/config"
	"github.com/markdave123-py/Dossier/internal/core/ingestion_engine"
	"github.com/markdave123-py/Dossier/internal/events"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewRouter wires all routes.
func NewRouter(cfg *config.Config, logger *slog.Logger, runner ingestion_engine.Runner, queue events.Enqueuer) http.Handler {
	docHandler := handlers.NewDocumentHandler(runner, queue, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(appMiddleware.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", handlers.Health)

	r.Route("/api", func(api chi.Router) {
		// Transcription can run for many minutes; no request timeout here.
		api.Post("/documents/process", docHandler.ProcessDocument)
		api.With(middleware.Timeout(30*time.Second)).Post("/events/storage", docHandler.StorageEvent)
	})
	return r
}

func NewServer(cfg *config.Config, logger *slog.Logger, runner ingestion_engine.Runner, queue events.Enqueuer) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           NewRouter(cfg, logger, runner, queue),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start runs the HTTP server until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
