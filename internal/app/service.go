// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nkast/ratekeeper/internal/domain/selector"
	"github.com/nkast/ratekeeper/internal/domain/timing"
	"github.com/nkast/ratekeeper/internal/domain/vote"
	"github.com/nkast/ratekeeper/pkg/logger"
	"github.com/nkast/ratekeeper/pkg/metrics"
)

// Service owns the timing catalog and the selection engine and implements
// the API dependencies for the refresh rate service.
type Service struct {
	mu sync.RWMutex

	// Core components
	catalog *timing.Catalog
	sel     *selector.Selector

	// Configuration
	records       []timing.Record
	currentConfig timing.ConfigID
	initialPolicy *selector.Policy
	frameMargin   time.Duration
	touchBoost    bool

	// State
	started    bool
	selections int64
	winCounts  map[string]int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithTimings sets the display timing records the catalog is built from.
func WithTimings(records []timing.Record) Option {
	return func(s *Service) {
		if len(records) > 0 {
			s.records = records
		}
	}
}

// WithCurrentConfig sets the config the display is running at startup.
func WithCurrentConfig(id timing.ConfigID) Option {
	return func(s *Service) {
		s.currentConfig = id
	}
}

// WithInitialPolicy sets the administrator policy installed at startup.
func WithInitialPolicy(p selector.Policy) Option {
	return func(s *Service) {
		s.initialPolicy = &p
	}
}

// WithFrameMargin sets the alignment margin used when counting display
// frames per layer frame.
func WithFrameMargin(margin time.Duration) Option {
	return func(s *Service) {
		if margin >= 0 {
			s.frameMargin = margin
		}
	}
}

// WithTouchBoost enables or disables the touch interaction boost.
func WithTouchBoost(enabled bool) Option {
	return func(s *Service) {
		s.touchBoost = enabled
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		records: []timing.Record{
			{ID: 0, VsyncPeriod: timing.FPSToPeriod(60), Name: "60Hz"},
		},
		currentConfig: 0,
		frameMargin:   800 * time.Microsecond,
		touchBoost:    true,
		winCounts:     make(map[string]int64),
		logger:        nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting refresh rate service...")

	cat, err := timing.NewCatalog(s.records)
	if err != nil {
		return fmt.Errorf("building timing catalog: %w", err)
	}
	if _, ok := cat.ByID(s.currentConfig); !ok {
		return fmt.Errorf("%w: current config %d", ErrUnknownConfig, s.currentConfig)
	}
	s.catalog = cat
	s.sel = selector.New(cat, s.currentConfig,
		selector.WithLogger(s.logger.Named("selector")),
		selector.WithFrameMargin(s.frameMargin),
		selector.WithTouchBoost(s.touchBoost),
	)

	if s.initialPolicy != nil {
		if _, err := s.sel.SetAdminPolicy(*s.initialPolicy); err != nil {
			return fmt.Errorf("installing initial policy: %w", err)
		}
	}

	metrics.UpdateCatalogSize(cat.Len())

	s.started = true
	s.logger.Info(ctx, "refresh rate service started",
		logger.Int("timings", cat.Len()),
		logger.Float64("minFPS", cat.MinSupported().FPS),
		logger.Float64("maxFPS", cat.MaxSupported().FPS),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping refresh rate service...")

	s.started = false
	s.logger.Info(context.Background(), "refresh rate service stopped")
}

// Timings returns every timing in the catalog, lowest refresh rate first.
func (s *Service) Timings(ctx context.Context) []timing.Timing {
	return s.catalog.All()
}

// Available returns the timings the effective policy currently permits.
func (s *Service) Available(ctx context.Context) []timing.Timing {
	return s.sel.Available()
}

// AdminPolicy returns the administrator policy.
func (s *Service) AdminPolicy(ctx context.Context) selector.Policy {
	return s.sel.AdminPolicy()
}

// EffectivePolicy returns the policy selection currently honors and whether
// it comes from an override.
func (s *Service) EffectivePolicy(ctx context.Context) (selector.Policy, bool) {
	return s.sel.EffectivePolicy(), s.sel.OverrideActive()
}

// SetAdminPolicy replaces the administrator policy.
func (s *Service) SetAdminPolicy(ctx context.Context, p selector.Policy) (selector.SetResult, error) {
	res, err := s.sel.SetAdminPolicy(p)
	if err != nil {
		s.logger.Warn(ctx, "administrator policy rejected", logger.Error(err))
		return res, err
	}
	s.logger.Info(ctx, "administrator policy written",
		logger.Int("defaultConfig", int(p.DefaultConfig)),
		logger.Float64("minFPS", p.MinFPS),
		logger.Float64("maxFPS", p.MaxFPS),
		logger.String("result", res.String()),
	)
	return res, nil
}

// SetOverridePolicy installs or clears the override policy.
func (s *Service) SetOverridePolicy(ctx context.Context, p *selector.Policy) (selector.SetResult, error) {
	res, err := s.sel.SetOverridePolicy(p)
	if err != nil {
		s.logger.Warn(ctx, "override policy rejected", logger.Error(err))
		return res, err
	}
	if p == nil {
		s.logger.Info(ctx, "override policy cleared", logger.String("result", res.String()))
	} else {
		s.logger.Info(ctx, "override policy written",
			logger.Int("defaultConfig", int(p.DefaultConfig)),
			logger.String("result", res.String()),
		)
	}
	return res, nil
}

// CurrentTiming returns the timing the display hardware is running.
func (s *Service) CurrentTiming(ctx context.Context) timing.Timing {
	return s.sel.CurrentTiming()
}

// SetCurrentTiming records a hardware-confirmed timing switch. Unknown IDs
// are rejected here so only verified configs reach the tracker.
func (s *Service) SetCurrentTiming(ctx context.Context, id timing.ConfigID) error {
	if _, ok := s.catalog.ByID(id); !ok {
		return fmt.Errorf("%w: config %d", ErrUnknownConfig, id)
	}
	s.sel.SetCurrentTiming(id)
	s.logger.Info(ctx, "current timing updated", logger.Int("configID", int(id)))
	return nil
}

// SelectBestTiming scores the layer set against the available timings and
// returns the winner. Layers are consumed by the call and never stored.
func (s *Service) SelectBestTiming(ctx context.Context, layers []vote.LayerRequirement, touchActive bool) (timing.Timing, bool) {
	best, consideredTouch := s.sel.SelectBestTiming(layers, touchActive)

	s.mu.Lock()
	s.selections++
	s.winCounts[best.Name]++
	s.mu.Unlock()

	return best, consideredTouch
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
	}

	if s.started {
		current := s.sel.CurrentTiming()
		wins := make(map[string]int64, len(s.winCounts))
		for name, n := range s.winCounts {
			wins[name] = n
		}

		stats["catalog_size"] = s.catalog.Len()
		stats["available_timings"] = len(s.sel.Available())
		stats["override_active"] = s.sel.OverrideActive()
		stats["current_timing"] = current.Name
		stats["current_fps"] = current.FPS
		stats["selections_total"] = s.selections
		stats["selection_wins"] = wins
	}

	return stats
}
