package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/notespace/internal/app/pipeline"
	"github.com/yigit/notespace/internal/bootstrap"
	"github.com/yigit/notespace/internal/config"
	"github.com/yigit/notespace/internal/db"
	"github.com/yigit/notespace/internal/pkg/helpers"
)

const (
	shutdownTimeout        = 30 * time.Second
	revokedCleanupInterval = time.Hour
)

// Server holds the state for the HTTP server and its background workers.
type Server struct {
	config   *config.Config
	router   *gin.Engine
	database *db.PostgresDB
	deps     *bootstrap.Dependencies
	logger   zerolog.Logger
	http     *http.Server

	// cancels the hub and the cleanup loop
	cancelBackground context.CancelFunc
	cleanupDone      chan struct{}
}

// NewServer creates and initializes a new server instance by calling bootstrap functions.
func NewServer(configPath string) (*Server, error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config or setup logger: %w", err)
	}

	database, err := bootstrap.SetupDatabase(cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	deps, err := bootstrap.BuildDependencies(context.Background(), cfg, database.Pool, lgr)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to setup dependencies: %w", err)
	}

	return &Server{
		config:   cfg,
		router:   bootstrap.SetupRouter(cfg, deps, lgr),
		database: database,
		deps:     deps,
		logger:   lgr,
	}, nil
}

// startBackground recovers runs interrupted by a previous process, then
// starts the websocket hub, the pipeline workers and the revocation cleanup.
func (s *Server) startBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelBackground = cancel

	if _, err := pipeline.RecoverInterrupted(ctx, s.deps.Repos.MetaDocumentRepository, s.logger); err != nil {
		s.logger.Error().Err(err).Msg("Failed to recover interrupted meta documents")
	}

	go s.deps.Hub.Run(ctx)
	s.deps.Queue.Start()

	s.cleanupDone = make(chan struct{})
	go s.cleanupRevokedTokens(ctx)
}

// cleanupRevokedTokens drops expired revocations at startup and then hourly
func (s *Server) cleanupRevokedTokens(ctx context.Context) {
	defer close(s.cleanupDone)

	ticker := time.NewTicker(revokedCleanupInterval)
	defer ticker.Stop()

	for {
		n, err := s.deps.Services.AuthService.CleanupRevokedTokens(ctx)
		if err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("Failed to clean up revoked tokens")
		} else if n > 0 {
			s.logger.Info().Int64("removed", n).Msg("Expired token revocations removed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Run starts the HTTP server and handles graceful shutdown.
func (s *Server) Run() error {
	s.startBackground()

	s.logger.Info().Str("port", s.config.Server.Port).Msg("Starting server...")

	s.http = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  helpers.ParseDuration(s.config.Server.ReadTimeout, 30*time.Second),
		WriteTimeout: helpers.ParseDuration(s.config.Server.WriteTimeout, 120*time.Second),
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("HTTP server listening")
		serverErrors <- s.http.ListenAndServe()
	}()

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(osSignals)

	var runErr error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("error starting server: %w", err)
		}
	case sig := <-osSignals:
		s.logger.Info().Str("signal", sig.String()).Msg("Received OS signal, initiating shutdown...")
	}

	return errors.Join(runErr, s.Shutdown(context.Background()))
}

// Shutdown stops the HTTP server first so no new runs are accepted, then the
// pipeline queue, the websocket hub and finally the database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error

	if s.http != nil {
		s.logger.Info().Msg("Shutting down HTTP server...")
		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error().Err(err).Msg("HTTP server shutdown error")
			errs = append(errs, err)
		} else {
			s.logger.Info().Msg("HTTP server gracefully stopped.")
		}
	}

	if s.deps != nil {
		s.logger.Info().Msg("Stopping pipeline queue...")
		if err := s.deps.Queue.Stop(ctx); err != nil {
			s.logger.Error().Err(err).Msg("Pipeline queue did not stop in time")
			errs = append(errs, err)
		}

		s.logger.Info().Msg("Stopping websocket hub...")
		if err := s.deps.Hub.Stop(ctx); err != nil {
			s.logger.Error().Err(err).Msg("Websocket hub did not stop in time")
			errs = append(errs, err)
		}
	}

	if s.cancelBackground != nil {
		s.cancelBackground()
		<-s.cleanupDone
	}

	if s.database != nil {
		s.logger.Info().Msg("Closing database connection pool...")
		s.database.Close()
		s.logger.Info().Msg("Database connection pool closed.")
	}

	s.logger.Info().Msg("Server shutdown process complete.")
	if len(errs) > 0 {
		return fmt.Errorf("server shutdown completed with errors: %w", errors.Join(errs...))
	}
	return nil
}
