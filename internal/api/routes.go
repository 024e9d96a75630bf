// Package api provides the optional read-only operator HTTP surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bioetl-io/bioetl/internal/api/middleware"
	"github.com/bioetl-io/bioetl/internal/ledger"
)

const (
	healthCheckTimeout = 2 * time.Second
	expectedURLParts   = 2
)

// Route pairs a method-qualified path ("GET /healthz") with its handler.
// Used for declarative route registration with public-endpoint bypass
// support.
type Route struct {
	Path    string
	Handler http.HandlerFunc
}

// setupRoutes registers the three endpoints the operator HTTP surface
// exposes. GET /healthz and GET /metrics are public; GET /runs/{run_id} is
// protected by the authentication middleware configured in NewServer.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	s.registerPublicRoutes(
		mux,
		Route{"GET /healthz", s.handleHealthz},
		Route{"GET /metrics", s.handleMetrics},
		Route{"/", s.handleNotFound},
	)

	mux.HandleFunc("GET /runs/{run_id}", s.handleGetRun)
}

// registerPublicRoutes registers routes that bypass authentication; the rate
// limiter still applies to them as unauthenticated requests. This is a
// convenience method that:
//  1. Registers the route handler with the HTTP mux
//  2. Registers the path as a public endpoint so the auth middleware skips it
//
// Security warning: never register business-logic endpoints as public
// routes.
func (s *Server) registerPublicRoutes(mux *http.ServeMux, routes ...Route) {
	validHTTPMethods := map[string]bool{
		"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true,
	}

	for _, route := range routes {
		mux.Handle(route.Path, route.Handler)

		path := route.Path

		parts := strings.Fields(path)
		if len(parts) == expectedURLParts && validHTTPMethods[parts[0]] {
			path = strings.TrimSpace(parts[1])
		}

		if path == "" {
			s.logger.Warn("malformed route path detected, ignoring route", slog.String("path", route.Path))

			continue
		}

		middleware.RegisterPublicEndpoint(path)
	}
}

// handleHealthz reports server uptime and the breaker/outage state of every
// configured source. It serves already-materialized in-memory state; it
// never touches the output dataset.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		UptimeSec: time.Since(s.startTime).Seconds(),
	}

	if s.client != nil {
		status.Sources = make([]SourceHealth, 0, len(s.sourceNames))
		for _, name := range s.sourceNames {
			status.Sources = append(status.Sources, sourceHealthFrom(s.client, name))
		}
	}

	writeJSON(w, r, s.logger, http.StatusOK, status)
}

// handleMetrics serves the pipeline's Prometheus metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		WriteErrorResponse(w, r, s.logger, NotFound("metrics are not configured"))

		return
	}

	s.metrics.ServeHTTP(w, r)
}

// handleGetRun returns the persisted run_history row for a completed run.
// This is not the "interactive query interface" the dataset's Non-goals
// exclude: it looks up one already-materialized manifest by run id, it does
// not query or filter the dataset itself.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")
	if runID == "" {
		WriteErrorResponse(w, r, s.logger, BadRequest("run_id path parameter is required"))

		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	run, err := s.ledgerStore.FindByRunID(ctx, runID)
	if err != nil {
		if errors.Is(err, ledger.ErrRunNotFound) {
			WriteErrorResponse(w, r, s.logger, NotFound("no run found for run_id "+runID))

			return
		}

		s.logger.Error("failed to look up run", slog.String("run_id", runID), slog.String("error", err.Error()))
		WriteErrorResponse(w, r, s.logger, InternalServerError("failed to look up run"))

		return
	}

	writeJSON(w, r, s.logger, http.StatusOK, RunResponse{
		RunID:       run.RunID,
		Release:     run.Release,
		ConfigHash:  run.ConfigHash,
		CommitSHA:   run.CommitSHA,
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
		Status:      run.Status,
		RowCount:    run.RowCount,
		Checksums:   run.Checksums,
		ErrorDetail: run.ErrorDetail,
	})
}

// handleNotFound is the catch-all 404 handler for unregistered paths.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteErrorResponse(w, r, s.logger, NotFound("the requested resource was not found"))
}

// writeJSON encodes body as the JSON response, falling back to a logged
// RFC 7807 error if encoding fails.
func writeJSON(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}
