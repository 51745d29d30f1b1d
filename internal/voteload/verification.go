package voteload

import (
	"context"
	"fmt"

	"github.com/nkast/ratekeeper/pkg/logger"
)

// fetchTimings retrieves the catalog listing with allowed flags.
func fetchTimings(ctx context.Context, config *Config) ([]Timing, error) {
	client := newHTTPClient(config.Timeout)

	resp, err := client.Get(config.BaseURL + "/timings")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch timings: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read timings response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("timings request failed with status %d", resp.StatusCode)
	}

	var timings []Timing
	if err := unmarshalJSON(body, &timings); err != nil {
		return nil, fmt.Errorf("failed to parse timings: %w", err)
	}

	return timings, nil
}

// verifyResults checks that every selection winner is a timing the service
// reports as allowed.
func verifyResults(ctx context.Context, config *Config, timings []Timing, stats *Stats) error {
	logger.Get().Info(ctx, "verifying selection winners against the allowed set")

	allowed := make(map[string]bool, len(timings))
	for _, t := range timings {
		allowed[t.Name] = t.Allowed
	}

	for name, count := range stats.WinsByTiming {
		ok, known := allowed[name]
		if !known {
			return fmt.Errorf("winner %q (won %d times) is not in the catalog", name, count)
		}
		if !ok {
			return fmt.Errorf("winner %q (won %d times) is filtered out by the effective policy", name, count)
		}
	}

	logger.Get().Info(ctx, "verification passed",
		logger.Int("distinctWinners", len(stats.WinsByTiming)),
		logger.Int("catalogSize", len(timings)),
	)
	return nil
}
