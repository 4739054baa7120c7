// Package server implements the HTTP API for the legal drafting pipeline:
// template extraction and storage, draft lifecycle, web search, and web
// bootstrap. The server is started by the `lexdraft serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veritaslegal/lexdraft-go/internal/draft"
	"github.com/veritaslegal/lexdraft-go/internal/logging"
	"github.com/veritaslegal/lexdraft-go/internal/model"
)

// New constructs a Server from the provided dependencies and config.
func New(deps Deps, cfg *Config) (*Server, error) {
	if deps.Store == nil || deps.Extractor == nil || deps.Embedder == nil || deps.Drafts == nil {
		return nil, fmt.Errorf("server: store, extractor, embedder and drafts must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	s := &Server{
		deps:     deps,
		cfg:      cfg,
		log:      log,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(registry),
		registry: registry,
	}

	rps := cfg.RateLimit
	if rps == 0 {
		rps = defaultRateLimit
	}
	burst := cfg.RateBurst
	if burst == 0 {
		burst = defaultRateBurst
	}
	rl, stopRL := newRateLimiter(rps, burst, log)
	s.stopRL = stopRL

	if cfg.APIKey == "" {
		log.Warn("server: no API key configured, authentication disabled")
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/documents", s.route("documents", s.handleUploadDocument))
	mux.Handle("POST /api/templates/extract", s.route("extract", s.handleExtract))
	mux.Handle("POST /api/templates", s.route("templates_save", s.handleSaveTemplate))
	mux.Handle("GET /api/templates", s.route("templates_list", s.handleListTemplates))
	mux.Handle("GET /api/templates/{template_id}", s.route("templates_get", s.handleGetTemplate))
	mux.Handle("POST /api/draft", s.route("draft_start", s.handleDraftStart))
	mux.Handle("POST /api/draft/finalize", s.route("draft_finalize", s.handleDraftFinalize))
	mux.Handle("POST /api/draft/{id}/regenerate", s.route("draft_regenerate", s.handleDraftRegenerate))
	mux.Handle("POST /api/draft/{id}/edit", s.route("draft_edit", s.handleDraftEdit))
	mux.Handle("POST /api/search/web", s.route("search_web", s.handleSearchWeb))
	mux.Handle("POST /api/bootstrap", s.route("bootstrap", s.handleBootstrap))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	var handler http.Handler = mux
	handler = authMiddleware(cfg.APIKey, handler)
	handler = rl.middleware(handler)
	handler = requestLogger(log, handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Handler returns the server's root handler. Exposed for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server: listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// route wraps a handler with per-endpoint metrics instrumentation.
func (s *Server) route(name string, h http.HandlerFunc) http.Handler {
	return s.metrics.instrument(name, h)
}

// decode reads a JSON request body into dst.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return model.Invalidf("invalid request body")
	}
	return nil
}

// writeJSON encodes v as the JSON response with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("server: encode response", slog.Any("error", err))
	}
}

// errorResponse is the JSON body for all error replies.
type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors to HTTP status codes: validation failures
// become 400, missing records and unmatched queries become 404, everything
// else is a 500 with the detail kept out of the response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context())

	var noMatch *draft.NoMatchError
	switch {
	case model.IsValidation(err):
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, r, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.As(err, &noMatch):
		writeJSON(w, r, http.StatusNotFound, errorResponse{Error: noMatch.Error()})
	default:
		log.Error("server: internal error", slog.Any("error", err))
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
