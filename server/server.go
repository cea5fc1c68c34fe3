// Package server provides HTTP server management and lifecycle handling for the OMEQ API.
// It wires the middleware chain, the v1 routes and /metrics, and shuts down gracefully.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/giygas/omeq-api/config"
	"github.com/giygas/omeq-api/data"
	"github.com/giygas/omeq-api/handlers"
	"github.com/giygas/omeq-api/health"
	"github.com/giygas/omeq-api/interfaces"
	"github.com/giygas/omeq-api/logging"
	"github.com/giygas/omeq-api/metrics"
	"github.com/giygas/omeq-api/ranking"
	"github.com/giygas/omeq-api/validation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server
type Server struct {
	server        *http.Server
	router        chi.Router
	dataContainer *data.DataContainer
	config        *config.Config
	httpHandler   interfaces.HTTPHandler
	healthChecker interfaces.HealthChecker
	rateLimiter   *RateLimiter
	cleanupCtx    context.Context
	stopCleanup   context.CancelFunc
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, dataContainer *data.DataContainer) *Server {
	router := chi.NewRouter()

	reloadInterval := time.Duration(cfg.CatalogReloadMinutes) * time.Minute
	healthChecker := health.NewHealthChecker(dataContainer, reloadInterval)

	mode, err := ranking.ParseMode(cfg.SearchMode)
	if err != nil {
		logging.Warn("Falling back to token search", "error", err)
	}
	ranker := ranking.NewRanker(mode, cfg.MaxSuggestions)

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())

	server := &Server{
		server: &http.Server{
			Handler:      router,
			Addr:         cfg.Address + ":" + cfg.Port,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:        router,
		dataContainer: dataContainer,
		config:        cfg,
		httpHandler:   handlers.NewHTTPHandler(dataContainer, validation.NewCatalogValidator(), healthChecker, ranker),
		healthChecker: healthChecker,
		rateLimiter:   NewRateLimiter(),
		cleanupCtx:    cleanupCtx,
		stopCleanup:   stopCleanup,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(BlockDirectAccessMiddleware) // Before RealIPMiddleware to see the original RemoteAddr
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.LoggingMiddleware(logging.Logger()))
	s.router.Use(metrics.Metrics)
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "If-None-Match"},
		ExposedHeaders:   []string{"ETag", "X-RateLimit-Remaining"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(s.rateLimiter.Middleware)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/products/{code}", s.httpHandler.FindProductByCode)
		r.Get("/search", s.httpHandler.SearchProducts)
		r.Get("/resolve", s.httpHandler.ResolveMedication)
		r.Post("/omeq", s.httpHandler.CalculateOMEQ)
		r.Post("/omeq/batch", s.httpHandler.CalculateOMEQBatch)
		r.Get("/opioids", s.httpHandler.ServeOpioids)
		r.Get("/catalog/report", s.httpHandler.ServeCatalogReport)
	})

	s.router.Get("/health", s.httpHandler.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())
}

// Start starts the server and blocks until it stops
func (s *Server) Start() error {
	go s.rateLimiter.RunCleanup(s.cleanupCtx, bucketIdleCleanup)

	if s.config.Env == config.EnvDevelopment {
		s.startProfilingServer()
	}

	logging.Info(fmt.Sprintf("Starting server at: %s:%s", s.config.Address, s.config.Port))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.stopCleanup()

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		if err := s.server.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}

// startProfilingServer starts the pprof profiling server in development mode
func (s *Server) startProfilingServer() {
	go func() {
		logging.Info("Profiling server started at http://localhost:6060/debug/pprof/")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			logging.Warn("Profiling server failed", "error", err)
		}
	}()
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}
