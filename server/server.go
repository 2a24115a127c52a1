// Package server wires the HTTP surface of the prescription service: router,
// middleware chain, routes and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/giygas/prescription-dictation/config"
	"github.com/giygas/prescription-dictation/handlers"
	"github.com/giygas/prescription-dictation/logging"
	"github.com/giygas/prescription-dictation/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server
type Server struct {
	server      *http.Server
	router      chi.Router
	handler     *handlers.HTTPHandlerImpl
	rateLimiter *RateLimiter
	config      *config.Config
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, handler *handlers.HTTPHandlerImpl) *Server {
	router := chi.NewRouter()

	s := &Server{
		server: &http.Server{
			Handler: router,
			Addr:    cfg.Address + ":" + cfg.Port,
			// Analysis waits on the extraction service, keep room above its timeout
			ReadTimeout:  15 * time.Second,
			WriteTimeout: cfg.ExtractionTimeout + 15*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:      router,
		handler:     handler,
		rateLimiter: NewRateLimiter(defaultRefillRate, defaultCapacity),
		config:      cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Router returns the configured router
func (s *Server) Router() chi.Router {
	return s.router
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	if s.config.Env == config.EnvProduction || s.config.Env == config.EnvStaging {
		s.router.Use(BlockDirectAccessMiddleware) // Put BEFORE RealIPMiddleware to see original RemoteAddr
	}
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.LoggingMiddleware(logging.Logger()))
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Location", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(metrics.Metrics)
	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(s.rateLimiter.Middleware)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	h := s.handler

	s.router.Route("/workspaces", func(r chi.Router) {
		r.Post("/", h.CreateWorkspace)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetWorkspace)
			r.Delete("/", h.DeleteWorkspace)
			r.Put("/patient", h.SetPatient)
			r.Put("/date", h.SetDate)

			r.Post("/medications", h.AddMedication)
			r.Patch("/medications/{medID}", h.UpdateMedication)
			r.Delete("/medications/{medID}", h.DeleteMedication)

			r.Route("/dictation", func(r chi.Router) {
				r.Get("/", h.DictationStatus)
				r.Post("/open", h.OpenDictation)
				r.Post("/close", h.CloseDictation)
				r.Post("/record", h.Record)
				r.Put("/transcript", h.SetTranscript)
				r.Post("/events", h.PushCaptureEvent)
				r.Get("/audio", h.StreamAudio)
				r.Post("/analyze", h.Analyze)
			})
		})
	})

	s.router.Get("/medications/suggest", h.SuggestMedications)
	s.router.Get("/health", h.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())
}

// Start starts the server
func (s *Server) Start() error {
	s.rateLimiter.StartCleanup(30 * time.Minute)

	logging.Info(fmt.Sprintf("Starting server at: %s:%s", s.config.Address, s.config.Port))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")
	s.rateLimiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		// If graceful shutdown fails, force close
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}
