// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load(ctx) layers sources.
// - External errors must be wrapped via this package's error helpers.
package config

import "time"

// TimingEntry describes one hardware display config in the configuration
// file. Exactly one of VsyncPeriodNS or FPS must be set; when both are
// present the period wins.
type TimingEntry struct {
	// ID is the hardware config id.
	ID int `koanf:"id"`

	// Group identifies hardware-interchangeable timings.
	Group int `koanf:"group"`

	// VsyncPeriodNS is the refresh period in nanoseconds.
	VsyncPeriodNS int64 `koanf:"vsync_period_ns"`

	// FPS sets the refresh rate; used to derive the period when
	// VsyncPeriodNS is absent.
	FPS float64 `koanf:"fps"`

	// Name is an optional human-readable label.
	Name string `koanf:"name"`
}

// PolicyEntry mirrors the initial administrator policy.
type PolicyEntry struct {
	// DefaultConfig is the config id anchoring group-restricted switching.
	DefaultConfig int `koanf:"default_config"`

	// MinFPS and MaxFPS bound the allowed refresh rate range.
	MinFPS float64 `koanf:"min_fps"`
	MaxFPS float64 `koanf:"max_fps"`

	// AllowGroupSwitching permits switching across config groups.
	AllowGroupSwitching bool `koanf:"allow_group_switching"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9150".
	Addr string `koanf:"addr"`

	// FrameMarginUS is the tolerance, in microseconds, used when matching
	// layer render periods against display vsync periods.
	FrameMarginUS int `koanf:"frame_margin_us"`

	// TouchBoost enables the bias toward the highest available timing while
	// the user is touching the screen.
	TouchBoost bool `koanf:"touch_boost"`

	// Timings lists the display timings used when no hardware probe is
	// wired; id 60/90/120Hz entries by default.
	Timings []TimingEntry `koanf:"timings"`

	// CurrentConfig is the config id the display starts at.
	CurrentConfig int `koanf:"current_config"`

	// Policy is the initial administrator policy applied at startup.
	Policy PolicyEntry `koanf:"policy"`
}

// New creates a Config with defaults: a three-timing 60/90/120Hz panel in a
// single config group, unrestricted FPS bounds, touch boost on.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		Addr:          ":9150",
		FrameMarginUS: 800,
		TouchBoost:    true,
		Timings: []TimingEntry{
			{ID: 0, Group: 0, FPS: 60},
			{ID: 1, Group: 0, FPS: 90},
			{ID: 2, Group: 0, FPS: 120},
		},
		CurrentConfig: 0,
		Policy: PolicyEntry{
			DefaultConfig: 0,
			MinFPS:        0,
			MaxFPS:        1000,
		},
	}
}

// FrameMargin returns the frame margin as a duration.
func (c *Config) FrameMargin() time.Duration {
	return time.Duration(c.FrameMarginUS) * time.Microsecond
}
