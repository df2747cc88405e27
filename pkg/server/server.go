package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"optable/adscript/pkg/analytics"
	"optable/adscript/pkg/config"
	"optable/adscript/pkg/loader"
	"optable/adscript/pkg/server/middleware"
	"optable/adscript/pkg/telemetry/metrics"
	"optable/adscript/pkg/telemetry/tracing"
)

// Server is the HTTP event logger server. It accepts analytics events on
// POST /events, serves a liveness probe on GET /healthz, and exposes
// Prometheus metrics.
type Server struct {
	config       *config.Config
	storage      analytics.Storage
	collector    *metrics.Collector
	tracer       *tracing.Tracer
	loaderSvc    *loader.Service
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates the event logger server. The collector and tracer may be
// nil; the corresponding endpoints and spans are then omitted.
func NewServer(cfg *config.Config, storage analytics.Storage, collector *metrics.Collector, tracer *tracing.Tracer) *Server {
	return &Server{
		config:       cfg,
		storage:      storage,
		collector:    collector,
		tracer:       tracer,
		shutdownChan: make(chan struct{}),
	}
}

// SetLoaderService attaches the loader service, enabling the POST /load
// prefetch endpoint. Call before Start.
func (s *Server) SetLoaderService(svc *loader.Service) {
	s.loaderSvc = svc
}

// Start starts the HTTP server and blocks until shutdown, a fatal server
// error, context cancellation, or SIGINT/SIGTERM.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	handler := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           s.config.Server.ListenAddress,
		Handler:        handler,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting event logger server",
			"address", s.config.Server.ListenAddress,
		)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown",
			"timeout", s.config.Server.ShutdownTimeout.String(),
		)

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("event logger server stopped")
	})

	return shutdownErr
}

// Stop requests a shutdown from another goroutine.
func (s *Server) Stop() {
	select {
	case <-s.shutdownChan:
	default:
		close(s.shutdownChan)
	}
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	var im *metrics.IngestMetrics
	if s.collector != nil {
		im = s.collector.Ingest()
	}

	eventsHandler := NewEventsHandler(
		s.storage,
		s.config.Server.MaxEventBytes,
		slog.Default(),
		im,
		s.tracer,
	)

	mux.Handle("/events", eventsHandler)
	mux.Handle("/healthz", HealthHandler{})

	if s.loaderSvc != nil {
		mux.Handle("/load", NewLoadHandler(s.loaderSvc, slog.Default()))
	}

	if s.collector != nil && s.config.Telemetry.Metrics.Enabled {
		path := s.config.Telemetry.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		mux.Handle(path, s.collector.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}
