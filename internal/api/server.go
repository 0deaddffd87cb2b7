package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ignite/feedback-gateway/internal/config"
	"github.com/ignite/feedback-gateway/internal/pkg/logger"
)

// Server wraps the HTTP server for the feedback gateway.
type Server struct {
	config config.ServerConfig
	server *http.Server
}

// NewServer creates the API server around the configured routes.
func NewServer(cfg config.ServerConfig, h *Handlers) *Server {
	router := SetupRoutes(h)
	return &Server{
		config: cfg,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Start begins listening. Blocks until the server stops.
func (s *Server) Start() error {
	logger.Info("feedback gateway listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
