// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nkast/ratekeeper/internal/domain/timing"
)

// CurrentDependencies defines the interface for current timing tracking.
type CurrentDependencies interface {
	CurrentTiming(ctx context.Context) timing.Timing
	SetCurrentTiming(ctx context.Context, id timing.ConfigID) error
}

// CurrentHandler handles current timing requests.
type CurrentHandler struct {
	deps CurrentDependencies
}

// NewCurrentHandler creates a new current timing handler.
func NewCurrentHandler(deps CurrentDependencies) *CurrentHandler {
	return &CurrentHandler{deps: deps}
}

type setCurrentRequest struct {
	ID int `json:"id"`
}

// HandleCurrent handles GET and PUT /current requests. GET reports the
// timing the display hardware is running; PUT records a hardware-confirmed
// switch.
func (h *CurrentHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	const op = "api.current"
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, toTimingPayload(h.deps.CurrentTiming(r.Context())))
	case http.MethodPut:
		var req setCurrentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
			return
		}
		if err := h.deps.SetCurrentTiming(r.Context(), timing.ConfigID(req.ID)); err != nil {
			writeError(w, http.StatusBadRequest, "unknown_config", err)
			return
		}
		writeJSON(w, http.StatusOK, toTimingPayload(h.deps.CurrentTiming(r.Context())))
	default:
		http.NotFound(w, r)
	}
}
