package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/zde37/ringlookup/pkg"
)

// Server exposes the live trace websocket and a health check.
type Server struct {
	httpServer *http.Server
	hub        *TraceHub
	listener   net.Listener
	logger     *pkg.Logger
}

// NewServer creates a trace server for addr.
func NewServer(addr string, logger *pkg.Logger) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	s := &Server{
		hub:    NewTraceHub(logger),
		logger: logger.WithFields(pkg.Fields{"component": "trace_api"}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.hub.HandleWebSocket)
	mux.HandleFunc("/health", s.healthHandler)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	return s, nil
}

// Hub returns the event hub, which implements chord.EventBroadcaster.
func (s *Server) Hub() *TraceHub {
	return s.hub
}

// Start starts the hub and the HTTP server.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener

	s.hub.Start()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	s.logger.Info().Str("address", listener.Addr().String()).Msg("Trace server started")
	return nil
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.httpServer.Addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info().Msg("Trace server stopped")
	return nil
}

// healthHandler handles health check requests.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
