// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nkast/ratekeeper/internal/domain/selector"
)

// PolicyDependencies defines the interface for policy operations.
type PolicyDependencies interface {
	AdminPolicy(ctx context.Context) selector.Policy
	EffectivePolicy(ctx context.Context) (selector.Policy, bool)
	SetAdminPolicy(ctx context.Context, p selector.Policy) (selector.SetResult, error)
	SetOverridePolicy(ctx context.Context, p *selector.Policy) (selector.SetResult, error)
}

// PolicyHandler handles policy requests.
type PolicyHandler struct {
	deps PolicyDependencies
}

// NewPolicyHandler creates a new policy handler.
func NewPolicyHandler(deps PolicyDependencies) *PolicyHandler {
	return &PolicyHandler{deps: deps}
}

type policyStateResponse struct {
	Admin          policyPayload `json:"admin"`
	Effective      policyPayload `json:"effective"`
	OverrideActive bool          `json:"override_active"`
}

// HandlePolicy handles GET and PUT /policy requests. GET reports the
// administrator and effective policies; PUT replaces the administrator
// policy.
func (h *PolicyHandler) HandlePolicy(w http.ResponseWriter, r *http.Request) {
	const op = "api.policy"
	switch r.Method {
	case http.MethodGet:
		effective, overrideActive := h.deps.EffectivePolicy(r.Context())
		writeJSON(w, http.StatusOK, policyStateResponse{
			Admin:          toPolicyPayload(h.deps.AdminPolicy(r.Context())),
			Effective:      toPolicyPayload(effective),
			OverrideActive: overrideActive,
		})
	case http.MethodPut:
		var req policyPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
			return
		}
		res, err := h.deps.SetAdminPolicy(r.Context(), req.toPolicy())
		if err != nil {
			if isInvalidPolicy(err) {
				writeError(w, http.StatusBadRequest, "invalid_policy", err)
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err)
			return
		}
		writeJSON(w, http.StatusOK, setResultResponse{Result: res.String()})
	default:
		http.NotFound(w, r)
	}
}

// HandleOverride handles PUT and DELETE /policy/override requests. PUT
// installs an override policy that shadows the administrator policy; DELETE
// clears it.
func (h *PolicyHandler) HandleOverride(w http.ResponseWriter, r *http.Request) {
	const op = "api.policy_override"
	switch r.Method {
	case http.MethodPut:
		var req policyPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
			return
		}
		p := req.toPolicy()
		res, err := h.deps.SetOverridePolicy(r.Context(), &p)
		if err != nil {
			if isInvalidPolicy(err) {
				writeError(w, http.StatusBadRequest, "invalid_policy", err)
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err)
			return
		}
		writeJSON(w, http.StatusOK, setResultResponse{Result: res.String()})
	case http.MethodDelete:
		res, err := h.deps.SetOverridePolicy(r.Context(), nil)
		if err != nil {
			// Clearing the override never fails validation.
			writeError(w, http.StatusInternalServerError, "internal_error", err)
			return
		}
		writeJSON(w, http.StatusOK, setResultResponse{Result: res.String()})
	default:
		http.NotFound(w, r)
	}
}

// isInvalidPolicy reports whether err stems from policy validation.
func isInvalidPolicy(err error) bool {
	return errors.Is(err, selector.ErrInvalidPolicy)
}
