package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/davidbz/medimentor/internal/config"
	"github.com/davidbz/medimentor/internal/httpserver/middleware"
	"github.com/davidbz/medimentor/internal/observability"
)

// Server represents the HTTP server.
type Server struct {
	config      config.ServerConfig
	handler     *Handler
	middlewares middleware.Middleware
	srv         *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg *config.ServerConfig,
	handler *Handler,
	middlewares middleware.Middleware,
) *Server {
	s := &Server{
		config:      *cfg,
		handler:     handler,
		middlewares: middlewares,
		srv:         nil,
	}

	// Create server with timeouts.
	//nolint:exhaustruct // remaining fields use net/http defaults
	s.srv = &http.Server{
		Handler:           s.Routes(),
		ReadTimeout:       time.Duration(cfg.ReadTimeout) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.WriteTimeout) * time.Second,
	}

	return s
}

// Routes returns the fully wrapped request handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Register routes.
	for _, feature := range s.handler.Features() {
		mux.HandleFunc(feature.Route, s.handler.HandleRelay(feature))
	}
	mux.HandleFunc("GET /health", s.handler.HandleHealth)

	// Apply middleware chain.
	return s.middlewares(mux)
}

// Start listens on the configured port and serves until Shutdown is called.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return s.Serve(listener)
}

// Serve serves requests on listener until Shutdown is called.
func (s *Server) Serve(listener net.Listener) error {
	observability.FromContext(context.Background()).Info("starting HTTP server",
		observability.String("addr", listener.Addr().String()),
	)

	if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	observability.FromContext(ctx).Info("shutting down HTTP server")

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
