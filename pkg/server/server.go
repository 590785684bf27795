// Package server implements the remote resource server: an HTTP API serving
// named, versioned binary resources to caching clients.
//
// Payloads travel inside a JSON envelope with base64-encoded data, matching
// what constrained device clients expect to parse. The server is a
// collaborator of the cache core, not part of it: it owns persistence and
// versioning, while clients own residency decisions.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fcanovai/rescache/internal/logger"
	"github.com/fcanovai/rescache/pkg/metrics"
	"github.com/fcanovai/rescache/pkg/server/store"
)

// Server serves the resource API over HTTP.
type Server struct {
	store store.Store
	http  *http.Server
}

// Config holds the server's listen settings.
type Config struct {
	ListenAddr string
}

// New creates a server around the given resource store.
func New(cfg Config, st store.Store) *Server {
	s := &Server{store: st}
	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           NewRouter(st),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving requests until the context is cancelled,
// then shuts down gracefully within the given timeout.
func (s *Server) ListenAndServe(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("resource server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down resource server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// NewRouter builds the chi router with all middleware and routes.
//
// Routes:
//   - GET    /health                      - liveness probe
//   - GET    /metrics                     - prometheus exposition (when enabled)
//   - GET    /api/resources               - list resources (?type= filter)
//   - POST   /api/resources               - upload a resource
//   - GET    /api/resources/{id}          - fetch payload envelope
//   - DELETE /api/resources/{id}          - delete a resource
//   - GET    /api/resources/{id}/version  - version check
//   - GET    /api/resources/{id}/info     - metadata only
//   - GET    /api/stats                   - storage statistics
func NewRouter(st store.Store) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	h := newResourceHandler(st)

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/resources", func(r chi.Router) {
			r.Get("/", h.List)
			r.Post("/", h.Upload)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Get)
				r.Delete("/", h.Delete)
				r.Get("/version", h.Version)
				r.Get("/info", h.Info)
			})
		})

		r.Get("/stats", h.Stats)
	})

	return r
}

// isHealthPath returns true for healthcheck and scrape endpoints.
func isHealthPath(path string) bool {
	return path == "/health" || path == "/metrics" || strings.HasPrefix(path, "/health/")
}

// requestLogger logs requests through the internal logger.
//
// Healthcheck and metrics-scrape requests are logged at DEBUG to keep the
// polling noise out of INFO logs.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logArgs := []any{
			"request_id", requestID,
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
			logger.KeyStatus, ww.Status(),
			logger.KeyRemoteAddr, r.RemoteAddr,
			logger.KeyDuration, time.Since(start).String(),
		}

		if isHealthPath(r.URL.Path) {
			logger.Debug("request completed", logArgs...)
		} else {
			logger.Info("request completed", logArgs...)
		}
	})
}
