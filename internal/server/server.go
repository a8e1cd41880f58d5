// Package server is the local control API for a running apply session: it
// streams pauses and progress over SSE and lets a remote client resume a
// pause by its sequence number.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/jobaru/internal/apply"
	"github.com/jonathan/jobaru/internal/config"
	"github.com/jonathan/jobaru/internal/server/middleware"
)

// shutdownTimeout bounds graceful shutdown once the run context ends.
const shutdownTimeout = 5 * time.Second

// Server serves the control API.
type Server struct {
	httpServer *http.Server
	confirmer  *apply.ChannelConfirmer
	events     *EventHub
	jwt        *JWTService
	logger     *zap.Logger
}

// Config holds server configuration
type Config struct {
	Addr string
	JWT  *config.JWTConfig
}

// New creates a server for confirmer and events. cfg.JWT is required.
func New(cfg Config, confirmer *apply.ChannelConfirmer, events *EventHub, logger *zap.Logger) (*Server, error) {
	if cfg.JWT == nil {
		return nil, fmt.Errorf("control server requires a JWT config")
	}
	if confirmer == nil || events == nil {
		return nil, fmt.Errorf("control server requires a confirmer and an event hub")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		confirmer: confirmer,
		events:    events,
		jwt:       NewJWTService(cfg.JWT),
		logger:    logger,
	}

	auth := middleware.AuthMiddleware(s.jwt.AsTokenValidator())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /status", auth(http.HandlerFunc(s.handleStatus)))
	mux.Handle("GET /pause", auth(http.HandlerFunc(s.handleGetPause)))
	mux.Handle("POST /pause/{seq}/resume", auth(http.HandlerFunc(s.handleResume)))
	mux.Handle("GET /events", auth(http.HandlerFunc(s.handleEvents)))

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.withLogging(s.withCORS(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No WriteTimeout: /events streams for the whole run.
	}
	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Token issues a bearer token for subject.
func (s *Server) Token(subject string) (string, error) {
	return s.jwt.GenerateToken(subject)
}

// Run listens on the configured address until ctx ends, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx ends.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control server listening", zap.String("addr", ln.Addr().String()))
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("control server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	<-errCh
	return nil
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("control request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
