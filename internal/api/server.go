// Package api exposes the pipeline over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mfDealFlow/internal/domain"
	"mfDealFlow/internal/ports"
)

// Config holds server configuration.
type Config struct {
	Port     int
	Logger   ports.Logger
	Ingester Ingester
	Querier  Querier
	CacheTTL time.Duration
	// HighWaterMark is optional; when set /health reports the store's mark.
	HighWaterMark func(ctx context.Context) (time.Time, error)
}

// Server is the HTTP front end. Ingestion runs are serialized so the store
// has a single writer.
type Server struct {
	router   *chi.Mux
	server   *http.Server
	logger   ports.Logger
	ingester Ingester
	querier  *CachedQuerier
	hwm      func(ctx context.Context) (time.Time, error)

	runMu   sync.Mutex
	stateMu sync.RWMutex
	lastRun *domain.RunReport
	lastErr error
}

// New creates a new HTTP server.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil || cfg.Ingester == nil || cfg.Querier == nil {
		return nil, fmt.Errorf("missing required dependencies for API server: %w", ports.ErrConfigurationError)
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}

	s := &Server{
		router:   chi.NewRouter(),
		logger:   cfg.Logger,
		ingester: cfg.Ingester,
		querier:  NewCachedQuerier(cfg.Querier, cfg.CacheTTL),
		hwm:      cfg.HighWaterMark,
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
}

func (s *Server) setupRoutes() {
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/ingest", s.handleIngest)
		r.Get("/deals", s.handleDeals)
		r.Get("/summary", s.handleSummary)
	})
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// RunIngest performs one serialized ingestion and invalidates cached reads
// when the store changed. Both the HTTP trigger and the scheduler use it.
func (s *Server) RunIngest(ctx context.Context) (*domain.RunReport, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	report, err := s.ingester.Run(ctx)
	if err == nil && report != nil && report.Outcome == domain.OutcomeSuccess {
		s.querier.Invalidate()
	}

	s.stateMu.Lock()
	s.lastRun, s.lastErr = report, err
	s.stateMu.Unlock()
	return report, err
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "Starting HTTP server", map[string]interface{}{"addr": s.server.Addr})
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info(r.Context(), "HTTP request", map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"durationMs": time.Since(start).Milliseconds(),
			"requestID":  middleware.GetReqID(r.Context()),
		})
	})
}
