package config

import "errors"

// Sentinel kinds for configuration errors; callers match with errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
