package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxRequestBytes bounds the body of an analysis request.
const maxRequestBytes = 1 << 20

// Transformer runs one analysis request. pipeline.ExposureTransformer
// implements it.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.ExposureResult, error)
}

// Server exposes health, readiness, metrics, and on-demand analysis
// endpoints.
type Server struct {
	httpServer  *http.Server
	transformer Transformer
	logger      *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, and /metrics
// routes. POST /analyze is registered when transformer is not nil.
func NewServer(addr string, ready sharedobs.ReadinessChecker, transformer Transformer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		transformer: transformer,
		logger:      logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if transformer != nil {
		mux.HandleFunc("POST /analyze", s.handleAnalyze)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleAnalyze runs the request body synchronously. A failed analysis is
// answered with 422 and the failed result.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
		return
	}

	result, err := s.transformer.Transform(r.Context(), domain.RawEvent{
		Value:     body,
		Timestamp: time.Now(),
		Headers:   map[string]string{"source": "http"},
	})
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	status := http.StatusOK
	if result.Status == domain.StatusFailed {
		status = http.StatusUnprocessableEntity
	}
	s.logger.Info("http analysis served", "request_id", result.RequestID, "status", result.Status)
	sharedobs.WriteJSON(w, status, result)
}
