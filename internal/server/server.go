// Package server defines the Server struct that composes the app's main
// dependencies.
//
// It owns the lifecycle of:
//   - configuration
//   - logger + optional New Relic service wrapper
//   - database pool and the session factory handed to request middleware
//   - http.Server
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/deppfellow/nowcasting-api/internal/config"
	"github.com/deppfellow/nowcasting-api/internal/database"
	loggerPkg "github.com/deppfellow/nowcasting-api/internal/logger"
)

// Server is the application container that holds shared resources.
//
// It is not the HTTP server itself.
type Server struct {
	Config *config.Config
	Logger *zerolog.Logger

	// LoggerService holds the New Relic application, if any.
	LoggerService *loggerPkg.LoggerService

	// DB is nil when the server was built around an injected SessionFactory.
	DB *database.Database

	// Sessions hands out the per-request database sessions. It is DB in
	// production.
	Sessions database.SessionFactory

	httpServer *http.Server
}

// New constructs a Server and connects to the database.
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (*Server, error) {
	db, err := database.New(cfg, logger, loggerService)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
		DB:            db,
		Sessions:      db,
	}, nil
}

// NewWithSessions builds a Server that takes its sessions from sessions
// instead of a pool it owns.
func NewWithSessions(cfg *config.Config, logger *zerolog.Logger, sessions database.SessionFactory) *Server {
	return &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: &loggerPkg.LoggerService{},
		Sessions:      sessions,
	}
}

// Ping reports whether the database answers. It is used by /status.
func (s *Server) Ping(ctx context.Context) error {
	if s.DB != nil {
		return s.DB.Ping(ctx)
	}

	sess, err := s.Sessions.Acquire(ctx)
	if err != nil {
		return err
	}
	defer sess.Release()

	var one int
	return sess.QueryRow(ctx, "SELECT 1").Scan(&one)
}

// SetupHTTPServer configures the internal net/http server around handler.
func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:         ":" + s.Config.Server.Port,
		Handler:      handler,
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start runs the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	s.Logger.Info().
		Str("port", s.Config.Server.Port).
		Str("env", s.Config.Primary.Env).
		Msg("starting server")

	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections, waits for in-flight requests until
// ctx expires and then closes the pool.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}

	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
