// Package api exposes backtest submission and status over HTTP.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-core/internal/logger"
	"github.com/rxtech-lab/argo-core/internal/strategy"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"go.uber.org/zap"
)

// TaskService queues backtests and reports their status.
type TaskService interface {
	Submit(ctx context.Context, req types.RunRequest) (types.TaskStatus, error)
	Get(ctx context.Context, id string) (types.TaskStatus, error)
}

// Server serves the backtest API.
type Server struct {
	tasks    TaskService
	registry *strategy.Registry
	logger   *logger.Logger

	listener   net.Listener
	httpServer *http.Server
}

// NewServer creates a server. A nil registry uses strategy.DefaultRegistry.
func NewServer(tasks TaskService, registry *strategy.Registry, log *logger.Logger) (*Server, error) {
	if tasks == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "api server requires a task service")
	}

	if registry == nil {
		registry = strategy.DefaultRegistry()
	}

	return &Server{
		tasks:    tasks,
		registry: registry,
		logger:   log.Named("api"),
	}, nil
}

// Handler returns the router with every route registered.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	backtest := router.PathPrefix("/api/v1/backtest").Subrouter()
	backtest.HandleFunc("/run", s.handleRun).Methods(http.MethodPost)
	backtest.HandleFunc("/status/{id}", s.handleStatus).Methods(http.MethodGet)
	backtest.HandleFunc("/strategies", s.handleStrategies).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	router.Use(s.logRequests)

	return router
}

// Start listens on address and serves in the background.
// If address is empty or ":0", a random available port is used.
func (s *Server) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to listen on %s", address)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()

	s.logger.Info("API server listening", zap.String("address", listener.Addr().String()))

	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Address returns the address the server is listening on.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
