// Package api is the HTTP request-acceptance layer: it admits evaluation
// requests, launches session workers and serves status, logs and results.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"solana-wallet-lab/internal/observability"
	"solana-wallet-lab/internal/session"
	"solana-wallet-lab/internal/storage"
)

// Server serves the session API.
type Server struct {
	server *http.Server
	cache  *resultCache
	logger *zap.Logger
}

// Config holds server configuration.
type Config struct {
	Addr     string
	Slots    storage.SlotStore
	Wallets  storage.WalletRegistry
	Sessions storage.SessionStore
	Results  storage.ResultStore
	Launcher session.Launcher
	LogDir   string        // per-session log files
	Metrics  http.Handler  // Default: observability.Handler()
	CacheTTL time.Duration // Default: 1m
	Now      func() time.Time
	Logger   *zap.Logger
}

// New creates a new HTTP server.
func New(cfg *Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	metricsHandler := cfg.Metrics
	if metricsHandler == nil {
		metricsHandler = observability.Handler()
	}

	cache, err := newResultCache(1000, ttl, logger)
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}

	h := &handler{
		slots:    cfg.Slots,
		wallets:  cfg.Wallets,
		sessions: cfg.Sessions,
		results:  cfg.Results,
		launcher: cfg.Launcher,
		cache:    cache,
		logDir:   cfg.LogDir,
		validate: validator.New(),
		now:      now,
		logger:   logger,
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Routes
	r.Post("/sessions", h.startSession)
	r.Get("/sessions/{id}", h.getSession)
	r.Get("/sessions/{id}/logs", h.getSessionLogs)
	r.Get("/sessions/{id}/result", h.getSessionResult)
	r.Get("/results/{wallet}", h.getWalletResult)
	r.Get("/health", h.health)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	return &Server{
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           r,
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      35 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		cache:  cache,
		logger: logger,
	}, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")
	defer s.cache.close()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
