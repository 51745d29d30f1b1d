// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nkast/ratekeeper/internal/domain/selector"
	"github.com/nkast/ratekeeper/internal/domain/timing"
	"github.com/nkast/ratekeeper/internal/domain/vote"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Timings returns every timing in the catalog.
	Timings(ctx context.Context) []timing.Timing
	// Available returns the timings the effective policy currently permits.
	Available(ctx context.Context) []timing.Timing

	// Policy operations expose the two-tier policy store.
	AdminPolicy(ctx context.Context) selector.Policy
	EffectivePolicy(ctx context.Context) (selector.Policy, bool)
	SetAdminPolicy(ctx context.Context, p selector.Policy) (selector.SetResult, error)
	SetOverridePolicy(ctx context.Context, p *selector.Policy) (selector.SetResult, error)

	// Current timing tracking.
	CurrentTiming(ctx context.Context) timing.Timing
	SetCurrentTiming(ctx context.Context, id timing.ConfigID) error

	// SelectBestTiming scores the layer set against the available timings.
	SelectBestTiming(ctx context.Context, layers []vote.LayerRequirement, touchActive bool) (timing.Timing, bool)
}

// Server wires HTTP routes for the selection API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	timingsHandler *TimingsHandler
	policyHandler  *PolicyHandler
	currentHandler *CurrentHandler
	selectHandler  *SelectHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		timingsHandler: NewTimingsHandler(deps),
		policyHandler:  NewPolicyHandler(deps),
		currentHandler: NewCurrentHandler(deps),
		selectHandler:  NewSelectHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/timings", MetricsMiddleware(s.timingsHandler.HandleGetTimings, "timings"))
	mux.HandleFunc("/policy/override", MetricsMiddleware(s.policyHandler.HandleOverride, "policy_override"))
	mux.HandleFunc("/policy", MetricsMiddleware(s.policyHandler.HandlePolicy, "policy"))
	mux.HandleFunc("/current", MetricsMiddleware(s.currentHandler.HandleCurrent, "current"))
	mux.HandleFunc("/select", MetricsMiddleware(s.selectHandler.HandlePostSelect, "select"))
}

// timingPayload mirrors the wire shape of a single timing.
type timingPayload struct {
	ID            int     `json:"id"`
	Group         int     `json:"group"`
	Name          string  `json:"name"`
	FPS           float64 `json:"fps"`
	VsyncPeriodNS int64   `json:"vsync_period_ns"`
}

func toTimingPayload(t timing.Timing) timingPayload {
	return timingPayload{
		ID:            int(t.ID),
		Group:         int(t.Group),
		Name:          t.Name,
		FPS:           t.FPS,
		VsyncPeriodNS: t.VsyncPeriod,
	}
}

// policyPayload mirrors the wire shape of a policy on both reads and writes.
type policyPayload struct {
	DefaultConfig       int     `json:"default_config"`
	MinFPS              float64 `json:"min_fps"`
	MaxFPS              float64 `json:"max_fps"`
	AllowGroupSwitching bool    `json:"allow_group_switching"`
}

func toPolicyPayload(p selector.Policy) policyPayload {
	return policyPayload{
		DefaultConfig:       int(p.DefaultConfig),
		MinFPS:              p.MinFPS,
		MaxFPS:              p.MaxFPS,
		AllowGroupSwitching: p.AllowGroupSwitching,
	}
}

func (p policyPayload) toPolicy() selector.Policy {
	return selector.Policy{
		DefaultConfig:       timing.ConfigID(p.DefaultConfig),
		MinFPS:              p.MinFPS,
		MaxFPS:              p.MaxFPS,
		AllowGroupSwitching: p.AllowGroupSwitching,
	}
}

type setResultResponse struct {
	Result string `json:"result"`
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
