/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server exposes a read-only HTTP view of the station's lineups,
// plans and live status alongside health and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/friendsincode/grimnir_lineup/internal/day"
	"github.com/friendsincode/grimnir_lineup/internal/lineup"
	"github.com/friendsincode/grimnir_lineup/internal/playback"
	"github.com/friendsincode/grimnir_lineup/internal/telemetry"
	"github.com/friendsincode/grimnir_lineup/internal/version"
)

// Lineups is the read side of the lineup store.
type Lineups interface {
	GetLineupPlan(ctx context.Context, date string) (*lineup.LineupPlan, error)
	GetScheduledLineup(ctx context.Context, date string) (*lineup.Lineup, error)
}

// Config holds what the server needs besides its store.
type Config struct {
	Addr      string
	StationID string
	Paths     playback.Paths
}

// Server serves the status API.
type Server struct {
	cfg        Config
	lineups    Lineups
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error
}

// New builds the router and the underlying http.Server.
func New(cfg Config, lineups Lineups, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		lineups: lineups,
		logger:  logger.With().Str("component", "server").Logger(),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(middleware.Timeout(30 * time.Second))
	s.router = router
	s.routes()

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           otelhttp.NewHandler(router, "grimnir-lineup-api"),
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", telemetry.Handler())
	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/lineups/{date}", s.handleLineup)
		r.Get("/plans/{date}", s.handlePlan)
		r.Get("/live/status", s.handleLiveStatus)
		r.Get("/live/queues", s.handleQueues)
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("status api listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return s.Close()
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"station_id": s.cfg.StationID,
		"version":    version.Version,
	})
}

func (s *Server) handleLineup(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if !day.Valid(date) {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}
	l, err := s.lineups.GetScheduledLineup(r.Context(), date)
	if err != nil {
		s.logger.Error().Err(err).Str("date", date).Msg("load scheduled lineup")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if l == nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if !day.Valid(date) {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}
	p, err := s.lineups.GetLineupPlan(r.Context(), date)
	if err != nil {
		s.logger.Error().Err(err).Str("date", date).Msg("load lineup plan")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleLiveStatus(w http.ResponseWriter, _ *http.Request) {
	status, err := playback.LoadStatus(s.cfg.Paths)
	if err != nil {
		s.logger.Error().Err(err).Msg("load live status")
		writeError(w, http.StatusInternalServerError, "status_unreadable")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleQueues(w http.ResponseWriter, _ *http.Request) {
	out := make(map[string][]playback.Entry, 3)
	for name, path := range map[string]string{
		"box":     s.cfg.Paths.BoxQueue(),
		"preshow": s.cfg.Paths.PreShowQueue(),
		"show":    s.cfg.Paths.ShowQueue(),
	} {
		q, err := playback.LoadQueue(path)
		if err != nil {
			s.logger.Error().Err(err).Str("queue", name).Msg("load shadow queue")
			writeError(w, http.StatusInternalServerError, "queue_unreadable")
			return
		}
		out[name] = q.Entries
	}
	writeJSON(w, http.StatusOK, out)
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
