// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/courtside/refassign/internal/adapters/repository"
	"github.com/courtside/refassign/internal/domain/lifecycle"
	"github.com/courtside/refassign/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// RunSchedule executes one scheduling run synchronously.
	RunSchedule(ctx context.Context, sc model.SchedulingContext) (model.SchedulingResult, error)

	// GetResult replays a stored run result.
	GetResult(ctx context.Context, runID string) (model.SchedulingResult, error)

	// Assignment lifecycle operations.
	GetAssignment(ctx context.Context, id string) (model.Assignment, error)
	Offer(ctx context.Context, id string) (model.Assignment, error)
	Respond(ctx context.Context, id string, version int64, response lifecycle.Response) (model.Assignment, error)
	Cancel(ctx context.Context, id, reason string) (model.Assignment, error)
	Complete(ctx context.Context, id string) (model.Assignment, error)
	MarkNoShow(ctx context.Context, id string) (model.Assignment, error)
	MarkPaid(ctx context.Context, id string) (model.Assignment, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	runsHandler        *RunsHandler
	assignmentsHandler *AssignmentsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		runsHandler:        NewRunsHandler(deps),
		assignmentsHandler: NewAssignmentsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/runs", MetricsMiddleware(s.runsHandler.HandlePostRun, "runs"))
	mux.HandleFunc("/runs/", MetricsMiddleware(s.runsHandler.HandleGetRun, "runs"))
	mux.HandleFunc("/assignments/", MetricsMiddleware(s.assignmentsHandler.HandleAssignment, "assignments"))
}

// responseRequest mirrors the body of POST /assignments/{id}/response.
type responseRequest struct {
	Response string `json:"response"`
	Version  int64  `json:"version"`
}

func (r responseRequest) validate() error {
	if r.Response != string(lifecycle.ResponseAccepted) && r.Response != string(lifecycle.ResponseDeclined) {
		return errors.New("response must be ACCEPTED or DECLINED")
	}
	if r.Version < 0 {
		return errors.New("version must be non-negative")
	}
	return nil
}

// cancelRequest mirrors the body of POST /assignments/{id}/cancel.
type cancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeLifecycleError translates domain errors into HTTP statuses: unknown
// ids become 404, stale versions 409, invalid transitions 422.
func writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, lifecycle.ErrStaleAssignment):
		writeError(w, http.StatusConflict, "stale_version", err)
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, "invalid_transition", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
