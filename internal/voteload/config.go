package voteload

import "time"

// Config holds configuration for the selection load test
type Config struct {
	BaseURL    string        // Base URL of the service
	NumBatches int           // Number of layer batches to generate
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for batches
	LogFile    string        // Log file for test output
	Verbose    bool          // Enable verbose logging
}

// Layer mirrors the wire shape of one layer vote
type Layer struct {
	Name       string  `json:"name"`
	Vote       string  `json:"vote"`
	DesiredFPS float64 `json:"desired_fps,omitempty"`
	Weight     float64 `json:"weight"`
}

// Batch is one selection request
type Batch struct {
	Layers      []Layer `json:"layers"`
	TouchActive bool    `json:"touch_active"`
}

// Timing mirrors the wire shape of a catalog timing
type Timing struct {
	ID            int     `json:"id"`
	Group         int     `json:"group"`
	Name          string  `json:"name"`
	FPS           float64 `json:"fps"`
	VsyncPeriodNS int64   `json:"vsync_period_ns"`
	Allowed       bool    `json:"allowed"`
}

// SelectResponse represents the response from a selection request
type SelectResponse struct {
	Timing          Timing `json:"timing"`
	ConsideredTouch bool   `json:"considered_touch"`
}

// Stats holds test statistics
type Stats struct {
	BatchesGenerated int
	BatchesSubmitted int
	BatchesFailed    int
	TouchBoosted     int
	WinsByTiming     map[string]int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
