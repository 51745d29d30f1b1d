// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nkast/ratekeeper/internal/domain/timing"
	"github.com/nkast/ratekeeper/internal/domain/vote"
)

// SelectDependencies defines the interface for selection requests.
type SelectDependencies interface {
	SelectBestTiming(ctx context.Context, layers []vote.LayerRequirement, touchActive bool) (timing.Timing, bool)
}

// SelectHandler handles selection requests.
type SelectHandler struct {
	deps SelectDependencies
}

// NewSelectHandler creates a new selection handler.
func NewSelectHandler(deps SelectDependencies) *SelectHandler {
	return &SelectHandler{deps: deps}
}

type layerRequest struct {
	Name       string  `json:"name"`
	Vote       string  `json:"vote"`
	DesiredFPS float64 `json:"desired_fps"`
	Weight     float64 `json:"weight"`
}

type selectRequest struct {
	Layers      []layerRequest `json:"layers"`
	TouchActive bool           `json:"touch_active"`
}

type selectResponse struct {
	Timing          timingPayload `json:"timing"`
	ConsideredTouch bool          `json:"considered_touch"`
}

// HandlePostSelect handles POST /select requests. The layer set is scored
// against the currently available timings and the winner is returned; the
// layers themselves are never stored.
func (h *SelectHandler) HandlePostSelect(w http.ResponseWriter, r *http.Request) {
	const op = "api.select"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}

	layers := make([]vote.LayerRequirement, 0, len(req.Layers))
	for _, l := range req.Layers {
		v, err := vote.ParseType(l.Vote)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
			return
		}
		if l.Weight < 0 || l.Weight > 1 {
			writeError(w, http.StatusBadRequest, "bad_request", newKind(op, ErrBadRequest))
			return
		}
		layers = append(layers, vote.LayerRequirement{
			Name:       l.Name,
			Vote:       v,
			DesiredFPS: l.DesiredFPS,
			Weight:     l.Weight,
		})
	}

	best, consideredTouch := h.deps.SelectBestTiming(r.Context(), layers, req.TouchActive)
	writeJSON(w, http.StatusOK, selectResponse{
		Timing:          toTimingPayload(best),
		ConsideredTouch: consideredTouch,
	})
}
