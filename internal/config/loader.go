package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if RATEKEEPER_CONFIG is set
//  3. env (prefix RATEKEEPER_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("RATEKEEPER_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: RATEKEEPER_ADDR, RATEKEEPER_LOG_LEVEL, ...
	// Keys keep their underscores to match the koanf tags on the struct.
	envProvider := env.Provider("RATEKEEPER_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "ratekeeper_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate performs basic structural checks; the timing catalog and policy
// get their full validation where they are built.
func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if len(c.Timings) == 0 {
		return fmt.Errorf("%w: at least one timing is required", ErrInvalidConfig)
	}
	for _, t := range c.Timings {
		if t.VsyncPeriodNS <= 0 && t.FPS <= 0 {
			return fmt.Errorf("%w: timing %d needs vsync_period_ns or fps", ErrInvalidConfig, t.ID)
		}
	}
	if c.FrameMarginUS < 0 {
		return fmt.Errorf("%w: frame_margin_us must not be negative", ErrInvalidConfig)
	}
	return nil
}
