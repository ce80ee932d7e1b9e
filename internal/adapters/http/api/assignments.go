// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/courtside/refassign/internal/adapters/repository"
	"github.com/courtside/refassign/internal/domain/lifecycle"
	"github.com/courtside/refassign/internal/domain/model"
)

// AssignmentsHandler handles assignment reads and lifecycle actions.
type AssignmentsHandler struct {
	deps Dependencies
}

// NewAssignmentsHandler creates a new assignments handler.
func NewAssignmentsHandler(deps Dependencies) *AssignmentsHandler {
	return &AssignmentsHandler{deps: deps}
}

// HandleAssignment routes /assignments/{id} and /assignments/{id}/{action}.
// Actions are POST-only: offer, response, cancel, complete, no-show, paid.
func (h *AssignmentsHandler) HandleAssignment(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/assignments/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	id, action, hasAction := strings.Cut(rest, "/")
	if id == "" || strings.Contains(action, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	if !hasAction {
		h.handleGet(w, r, id)
		return
	}
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	h.handleAction(w, r, id, action)
}

func (h *AssignmentsHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	a, err := h.deps.GetAssignment(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AssignmentsHandler) handleAction(w http.ResponseWriter, r *http.Request, id, action string) {
	const op = "api.assignment_action"

	var (
		a   model.Assignment
		err error
	)
	switch action {
	case "offer":
		a, err = h.deps.Offer(r.Context(), id)
	case "response":
		var req responseRequest
		if derr := json.NewDecoder(r.Body).Decode(&req); derr != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, derr))
			return
		}
		if verr := req.validate(); verr != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, verr))
			return
		}
		a, err = h.deps.Respond(r.Context(), id, req.Version, lifecycle.Response(req.Response))
	case "cancel":
		var req cancelRequest
		if derr := json.NewDecoder(r.Body).Decode(&req); derr != nil && !errors.Is(derr, io.EOF) {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, derr))
			return
		}
		a, err = h.deps.Cancel(r.Context(), id, req.Reason)
	case "complete":
		a, err = h.deps.Complete(r.Context(), id)
	case "no-show":
		a, err = h.deps.MarkNoShow(r.Context(), id)
	case "paid":
		a, err = h.deps.MarkPaid(r.Context(), id)
	default:
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
