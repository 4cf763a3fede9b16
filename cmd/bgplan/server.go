package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/artpar/bgplan/internal/shell/api"
	apimw "github.com/artpar/bgplan/internal/shell/api/middleware"
	"github.com/artpar/bgplan/internal/shell/planning"
	"github.com/artpar/bgplan/internal/shell/snapshot"
	"github.com/artpar/bgplan/internal/shell/store"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess           = 0
	ExitConfigError       = 1
	ExitDatabaseError     = 2
	ExitInvalidRequest    = 3
	ExitIllegalTransition = 4
	ExitHTTPServerError   = 5
)

// =============================================================================
// Planner Wiring
// =============================================================================

// app holds the dependencies shared by the plan and serve commands.
type app struct {
	planner *planning.Service
	store   store.Store
	logger  *slog.Logger
}

// newApp opens the plan history and the snapshot source.
func newApp(ctx context.Context, cfg *Config, logger *slog.Logger) (*app, error) {
	var s store.Store
	if cfg.Database.Enabled {
		sqlStore, err := store.NewSQLiteStore(cfg.Database.DSN)
		if err != nil {
			return nil, &ServerError{
				Op:       "OpenStore",
				Err:      err,
				ExitCode: ExitDatabaseError,
			}
		}
		s = sqlStore
	} else {
		logger.Info("plan history disabled")
	}

	srcCfg := cfg.Snapshot.SourceConfig()
	source, err := snapshot.NewSource(ctx, srcCfg, logger)
	if err != nil {
		if s != nil {
			s.Close()
		}
		return nil, &ServerError{
			Op:       "NewSource",
			Err:      err,
			ExitCode: ExitConfigError,
		}
	}

	logger.Debug("snapshot source ready",
		"backend", srcCfg.Backend,
		"bucket", srcCfg.Bucket,
		"key_template", srcCfg.KeyTemplate,
	)

	planner := planning.NewService(planning.Config{
		Loader:  snapshot.NewLoader(source, srcCfg.Timeout, logger),
		Locator: srcCfg.Locator,
		Store:   s,
		Logger:  logger,
	})

	return &app{planner: planner, store: s, logger: logger}, nil
}

// Close releases the plan history.
func (a *app) Close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("database close error", "error", err)
	}
}

// =============================================================================
// Server
// =============================================================================

// Server serves the planning API over HTTP.
type Server struct {
	config     *Config
	httpServer *http.Server
	app        *app
	logger     *slog.Logger
}

// NewServer creates a new server with the given config.
func NewServer(ctx context.Context, cfg *Config, logger *slog.Logger) (*Server, error) {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	apiLogger := logger.With("component", "api")
	opts := []api.Option{api.WithAuth(apimw.AuthConfig{
		SharedSecret: cfg.Server.SharedSecret,
		Logger:       apiLogger,
	})}
	if cfg.Server.RequireAuth {
		opts = append(opts, api.WithRequireAuth())
	}
	handler := api.NewHandler(a.planner, apiLogger, Version, opts...)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		app:        a,
		logger:     logger,
	}, nil
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			"address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		s.app.Close()
		return &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.app.Close()

	s.logger.Info("shutdown complete")
	return nil
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// =============================================================================
// Errors
// =============================================================================

// ServerError represents a startup or command failure with its exit code.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
