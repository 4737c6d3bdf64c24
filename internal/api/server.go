// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api serves search, disclosure and sentiment operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pdiddy/harvest/internal/enrich"
	"github.com/pdiddy/harvest/internal/search"
	"github.com/pdiddy/harvest/internal/store"
	"github.com/pdiddy/harvest/pkg/types"
)

// RetryAfterSeconds is advertised on 503 responses.
const RetryAfterSeconds = "5"

// Searcher runs an aggregated search. *search.Aggregator satisfies it.
type Searcher interface {
	Search(ctx context.Context, q search.Query, mode types.SearchMode) (types.ResultSet, error)
}

// BodyEnricher fills missing bodies. *enrich.Orchestrator satisfies it.
type BodyEnricher interface {
	Enrich(ctx context.Context, rs types.ResultSet) (types.ResultSet, enrich.Stats)
}

// Tagger produces sentiment verdicts. *sentiment.Tagger satisfies it.
type Tagger interface {
	Tag(ctx context.Context, sourceID, text string) (types.SentimentVerdict, bool)
}

// Deps are the components the handlers call. Any of them may be nil; the
// routes that need a missing component answer 503.
type Deps struct {
	Searcher Searcher
	Enricher BodyEnricher
	Tagger   Tagger
	Store    store.Store
	Gatherer prometheus.Gatherer
	Log      zerolog.Logger
}

// Server is the HTTP API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	deps       Deps
	validate   *validator.Validate
	log        zerolog.Logger
}

// NewServer wires routes and middleware.
func NewServer(cfg types.ServerConfig, deps Deps) *Server {
	s := &Server{
		deps:     deps,
		validate: newValidator(),
		log:      deps.Log.With().Str("component", "http-server").Logger(),
	}
	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(requestLogMiddleware(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	if s.deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/search", s.search)

	r.Route("/disclosures", func(r chi.Router) {
		r.Get("/", s.listDisclosures)
		r.Get("/{id}", s.getDisclosure)
		r.Put("/{id}", s.putDisclosure)
		r.Delete("/{id}", s.deleteDisclosure)
		r.Post("/{id}/sentiment", s.tagDisclosure)
	})
	return r
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	s.log.Info().Str("address", ln.Addr().String()).Msg("HTTP server starting")
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeUnavailable(w http.ResponseWriter, message string) {
	w.Header().Set("Retry-After", RetryAfterSeconds)
	writeError(w, http.StatusServiceUnavailable, message)
}

// writeStoreError maps store sentinels onto status codes.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrUnavailable):
		s.log.Warn().Err(err).Str("request_id", requestID(r.Context())).Msg("store unavailable")
		writeUnavailable(w, "storage temporarily unavailable")
	default:
		s.log.Error().Err(err).Str("request_id", requestID(r.Context())).Msg("store error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
