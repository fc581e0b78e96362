package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/flashaudit/internal/logger"
)

// Server exposes a registry on /metrics and a liveness check on /health.
type Server struct {
	srv *http.Server
	lis net.Listener
	err chan error
}

// NewServer creates a metrics server for reg listening on addr (":9090").
func NewServer(addr string, reg *prometheus.Registry) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(reg),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		err: make(chan error, 1),
	}
}

// NewRouter builds the chi router served by Server.
//
// Middleware, in order: request ID, real IP, request logging, panic recovery
// and a request timeout.
//
// Routes:
//   - GET /metrics - Prometheus scrape endpoint for reg
//   - GET /health - Liveness check
func NewRouter(reg *prometheus.Registry) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "OK")
	})

	return r
}

// requestLogger logs each request through the structured logger. Scrapes
// are frequent, so completion is logged at DEBUG.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		w.Header().Set(middleware.RequestIDHeader, requestID)

		next.ServeHTTP(ww, r)

		logger.Debug("Metrics request completed",
			logger.KeyRequestID, requestID,
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
			logger.KeyRemoteAddr, r.RemoteAddr,
			logger.KeyStatus, ww.Status(),
			logger.KeyBytes, ww.BytesWritten(),
			logger.KeyDurationMs, logger.Duration(start))
	})
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	s.lis = lis

	go func() {
		err := s.srv.Serve(lis)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.err <- err
	}()

	logger.Info("Metrics server listening", logger.KeyAddress, lis.Addr().String())
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.lis != nil {
		return s.lis.Addr().String()
	}
	return s.srv.Addr
}

// Done yields the serve error, or nil after a clean shutdown.
func (s *Server) Done() <-chan error {
	return s.err
}

// Stop shuts the server down, waiting for in-flight scrapes until ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	if s.lis == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
