// Package selector implements the refresh rate selection engine: it tracks
// the two-tier policy, derives the set of currently selectable timings, and
// scores per-layer votes to pick the timing that best serves the visible
// content.
package selector

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/nkast/ratekeeper/internal/domain/timing"
	"github.com/nkast/ratekeeper/internal/domain/vote"
	"github.com/nkast/ratekeeper/pkg/logger"
	"github.com/nkast/ratekeeper/pkg/metrics"
)

// Selector owns all mutable selection state behind a single mutex, so a
// reader can never observe a policy paired with availability data computed
// from a different policy. The catalog is immutable and read without
// locking.
type Selector struct {
	catalog    *timing.Catalog
	margin     int64 // ns
	touchBoost bool
	log        logger.Logger

	mu        sync.Mutex
	admin     Policy
	override  *Policy
	available []timing.Timing // lowest refresh rate first
	current   timing.Timing
}

// Option applies a configuration option to the Selector.
type Option func(*Selector)

// WithLogger sets a logger for policy transitions and selections.
func WithLogger(log logger.Logger) Option {
	return func(s *Selector) {
		s.log = log
	}
}

// WithFrameMargin overrides the nanosecond tolerance used when matching
// layer periods against vsync periods.
func WithFrameMargin(margin time.Duration) Option {
	return func(s *Selector) {
		if margin >= 0 {
			s.margin = margin.Nanoseconds()
		}
	}
}

// WithTouchBoost enables or disables the touch-interaction bias toward the
// highest available timing.
func WithTouchBoost(enabled bool) Option {
	return func(s *Selector) {
		s.touchBoost = enabled
	}
}

// New builds a Selector over the given catalog. currentConfig is the config
// the hardware reports as active at construction time; it anchors the
// initial administrator policy, which allows the full supported FPS range.
// New panics when currentConfig is not in the catalog, since that means the
// caller and the hardware layer disagree about what the display is running.
func New(cat *timing.Catalog, currentConfig timing.ConfigID, opts ...Option) *Selector {
	s := &Selector{
		catalog:    cat,
		margin:     defaultFrameMargin.Nanoseconds(),
		touchBoost: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.current = cat.MustByID(currentConfig)
	s.admin = Policy{
		DefaultConfig: currentConfig,
		MinFPS:        0,
		MaxFPS:        math.MaxFloat64,
	}
	s.rebuildAvailableLocked()

	metrics.UpdateCatalogSize(cat.Len())
	return s
}

// SetAdminPolicy stores a new administrator policy. Validation failures are
// returned without mutating any state. The change counts as Unchanged when
// the effective policy (which an active override may shadow) comes out
// identical, in which case nothing is recomputed.
func (s *Selector) SetAdminPolicy(p Policy) (SetResult, error) {
	if err := p.validate(s.catalog); err != nil {
		metrics.RecordPolicyRejected()
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.effectiveLocked()
	s.admin = p
	return s.applyPolicyChangeLocked(previous, "admin")
}

// SetOverridePolicy stores or clears the override policy. Passing nil clears
// the override and reverts to the administrator policy. See SetAdminPolicy
// for the Unchanged semantics.
func (s *Selector) SetOverridePolicy(p *Policy) (SetResult, error) {
	if p != nil {
		if err := p.validate(s.catalog); err != nil {
			metrics.RecordPolicyRejected()
			return 0, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.effectiveLocked()
	if p == nil {
		s.override = nil
	} else {
		cp := *p
		s.override = &cp
	}
	return s.applyPolicyChangeLocked(previous, "override")
}

// applyPolicyChangeLocked recomputes availability if the effective policy
// actually changed and reports the outcome.
func (s *Selector) applyPolicyChangeLocked(previous Policy, tier string) (SetResult, error) {
	effective := s.effectiveLocked()
	if effective == previous {
		metrics.RecordPolicyUnchanged()
		return PolicyUnchanged, nil
	}

	s.rebuildAvailableLocked()
	metrics.RecordPolicyUpdate()
	if s.log != nil {
		s.log.Debug(context.Background(), "policy updated",
			logger.String("tier", tier),
			logger.Int("default_config", int(effective.DefaultConfig)),
			logger.Float64("min_fps", effective.MinFPS),
			logger.Float64("max_fps", effective.MaxFPS),
			logger.Int("available", len(s.available)),
		)
	}
	return PolicyUpdated, nil
}

// rebuildAvailableLocked derives the ordered subset of timings selectable
// under the effective policy: FPS within [min-ε, max+ε] and, unless group
// switching is allowed, the default config's group only.
func (s *Selector) rebuildAvailableLocked() {
	p := s.effectiveLocked()
	def := s.catalog.MustByID(p.DefaultConfig)

	s.available = s.available[:0]
	for _, t := range s.catalog.All() {
		if !t.InRange(p.MinFPS, p.MaxFPS) {
			continue
		}
		if !p.AllowGroupSwitching && t.Group != def.Group {
			continue
		}
		s.available = append(s.available, t)
	}
	metrics.UpdateAvailableTimings(len(s.available))
}

func (s *Selector) effectiveLocked() Policy {
	if s.override != nil {
		return *s.override
	}
	return s.admin
}

// EffectivePolicy returns the override policy if one is active, and the
// administrator policy otherwise.
func (s *Selector) EffectivePolicy() Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectiveLocked()
}

// AdminPolicy returns the administrator policy regardless of any override.
func (s *Selector) AdminPolicy() Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.admin
}

// OverrideActive reports whether an override policy is currently set.
func (s *Selector) OverrideActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.override != nil
}

// IsAllowed reports whether the timing for id is selectable under the
// current policy.
func (s *Selector) IsAllowed(id timing.ConfigID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.available {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Available returns the policy-filtered timings ordered from the lowest
// refresh rate to the highest. The returned slice is a copy.
func (s *Selector) Available() []timing.Timing {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]timing.Timing, len(s.available))
	copy(out, s.available)
	return out
}

// MinByPolicy returns the lowest refresh rate allowed by the current policy.
func (s *Selector) MinByPolicy() timing.Timing {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.available) == 0 {
		return s.catalog.MustByID(s.effectiveLocked().DefaultConfig)
	}
	return s.available[0]
}

// MaxByPolicy returns the highest refresh rate allowed by the current policy.
func (s *Selector) MaxByPolicy() timing.Timing {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.available) == 0 {
		return s.catalog.MustByID(s.effectiveLocked().DefaultConfig)
	}
	return s.available[len(s.available)-1]
}

// MinSupported returns the lowest refresh rate the device supports; this
// never changes at runtime.
func (s *Selector) MinSupported() timing.Timing { return s.catalog.MinSupported() }

// MaxSupported returns the highest refresh rate the device supports; this
// never changes at runtime.
func (s *Selector) MaxSupported() timing.Timing { return s.catalog.MaxSupported() }

// Catalog exposes the immutable timing table.
func (s *Selector) Catalog() *timing.Catalog { return s.catalog }

// SetCurrentTiming records the timing the display is now running at. Only
// the coordinating thread calls this, after the hardware confirms a switch.
// It panics on an unknown config id: that indicates desynchronization with
// the hardware layer, which must not be masked.
func (s *Selector) SetCurrentTiming(id timing.ConfigID) {
	t := s.catalog.MustByID(id)
	s.mu.Lock()
	s.current = t
	s.mu.Unlock()
	metrics.UpdateCurrentTimingFPS(t.FPS)
}

// CurrentTiming returns the timing the display is presently running at.
func (s *Selector) CurrentTiming() timing.Timing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// CurrentTimingByPolicy returns the current timing when the policy still
// allows it, and the effective policy's default timing otherwise. The actual
// hardware switch lags policy updates; this answers "what should it be right
// now, honoring policy".
func (s *Selector) CurrentTimingByPolicy() timing.Timing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentByPolicyLocked()
}

func (s *Selector) currentByPolicyLocked() timing.Timing {
	for _, t := range s.available {
		if t.ID == s.current.ID {
			return s.current
		}
	}
	return s.catalog.MustByID(s.effectiveLocked().DefaultConfig)
}

// SelectTiming picks the best timing for the given layers without factoring
// in touch activity.
func (s *Selector) SelectTiming(layers []vote.LayerRequirement) timing.Timing {
	best, _ := s.SelectBestTiming(layers, false)
	return best
}

// SelectBestTiming picks the timing that best serves the given layer votes.
// The second return reports whether touch activity changed the outcome
// versus scoring without it. The call never mutates engine state; it is a
// pure function of the current policy/availability snapshot and its input.
func (s *Selector) SelectBestTiming(layers []vote.LayerRequirement, touchActive bool) (timing.Timing, bool) {
	start := time.Now()

	// Snapshot under the lock; scoring runs lock-free on the copy so the
	// critical section stays O(timings) regardless of layer count.
	s.mu.Lock()
	pol := s.effectiveLocked()
	candidates := make([]timing.Timing, len(s.available))
	copy(candidates, s.available)
	s.mu.Unlock()

	if len(candidates) == 0 {
		candidates = []timing.Timing{s.catalog.MustByID(pol.DefaultConfig)}
	}

	best, considered := s.chooseFrom(candidates, pol, layers, touchActive)

	metrics.RecordSelection(float64(time.Since(start).Microseconds()) / 1e3)
	if considered {
		metrics.RecordTouchBoost()
	}
	if s.log != nil {
		s.log.Debug(context.Background(), "selected timing",
			logger.String("timing", best.Name),
			logger.Int("layers", len(layers)),
			logger.Any("touch", considered),
		)
	}
	return best, considered
}

func (s *Selector) chooseFrom(candidates []timing.Timing, pol Policy, layers []vote.LayerRequirement, touchActive bool) (timing.Timing, bool) {
	var noVotes, minVotes, maxVotes, explicitDefaults int
	for _, l := range layers {
		switch l.Vote {
		case vote.NoVote:
			noVotes++
		case vote.Min:
			minVotes++
		case vote.Max:
			maxVotes++
		case vote.ExplicitDefault:
			explicitDefaults++
		}
	}

	var content timing.Timing
	switch {
	case len(layers) == 0:
		// Nothing visible: run at the policy default.
		return s.catalog.MustByID(pol.DefaultConfig), false
	case noVotes == len(layers):
		// Every layer abstained; the policy default stands in as the
		// content choice so touch can still boost an idle screen.
		content = s.catalog.MustByID(pol.DefaultConfig)
	case noVotes+minVotes == len(layers):
		content = candidates[0]
	case noVotes+maxVotes == len(layers):
		content = candidates[len(candidates)-1]
	default:
		content = s.scoreCandidates(candidates, layers, maxVotes > 0)
	}

	if touchActive && s.touchBoost && explicitDefaults == 0 {
		boosted := candidates[len(candidates)-1]
		return boosted, !boosted.Same(content)
	}
	return content, false
}

// scoreCandidates sums weighted alignment scores per candidate and returns
// the highest scorer. Exact ties go to the candidate encountered first: the
// lowest refresh rate, minimizing power, unless a Max vote flips the scan to
// prefer the highest.
func (s *Selector) scoreCandidates(candidates []timing.Timing, layers []vote.LayerRequirement, preferHigh bool) timing.Timing {
	scores := make([]float64, len(candidates))
	for _, l := range layers {
		if !l.Vote.Scores() || l.Weight <= 0 || l.DesiredFPS <= 0 {
			continue
		}
		layerPeriod := timing.FPSToPeriod(l.DesiredFPS)
		for i, cand := range candidates {
			frames, rem := displayFrames(layerPeriod, cand.VsyncPeriod, s.margin)
			if l.Vote == vote.ExplicitExactOrMultiple && (rem != 0 || frames == 0) {
				// The candidate period must evenly divide the desired period
				// (or be an exact multiple of it) to qualify at all.
				continue
			}
			scores[i] += l.Weight * alignmentScore(layerPeriod, cand.VsyncPeriod, frames, rem)
		}
	}

	bestIdx := 0
	if preferHigh {
		bestIdx = len(candidates) - 1
		for i := len(candidates) - 1; i >= 0; i-- {
			if scores[i] > scores[bestIdx] {
				bestIdx = i
			}
		}
	} else {
		for i := range candidates {
			if scores[i] > scores[bestIdx] {
				bestIdx = i
			}
		}
	}
	return candidates[bestIdx]
}
