// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/nkast/ratekeeper/internal/domain/timing"
)

// TimingDependencies defines the interface for catalog reads.
type TimingDependencies interface {
	Timings(ctx context.Context) []timing.Timing
	Available(ctx context.Context) []timing.Timing
}

// TimingsHandler handles catalog listing requests.
type TimingsHandler struct {
	deps TimingDependencies
}

// NewTimingsHandler creates a new timings handler.
func NewTimingsHandler(deps TimingDependencies) *TimingsHandler {
	return &TimingsHandler{deps: deps}
}

type timingListEntry struct {
	timingPayload
	Allowed bool `json:"allowed"`
}

// HandleGetTimings handles GET /timings requests. Every catalog timing is
// listed, with an allowed flag reflecting the effective policy.
func (h *TimingsHandler) HandleGetTimings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	allowed := make(map[timing.ConfigID]struct{})
	for _, t := range h.deps.Available(r.Context()) {
		allowed[t.ID] = struct{}{}
	}

	all := h.deps.Timings(r.Context())
	out := make([]timingListEntry, 0, len(all))
	for _, t := range all {
		_, ok := allowed[t.ID]
		out = append(out, timingListEntry{timingPayload: toTimingPayload(t), Allowed: ok})
	}
	writeJSON(w, http.StatusOK, out)
}
