package voteload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(url string) (*http.Response, error) {
	return c.client.Get(url)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(url string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitBatches submits selection batches concurrently using worker pools
func submitBatches(ctx context.Context, config *Config, batches []Batch, stats *Stats) error {
	log.Printf("submitting %d batches with %d workers...", len(batches), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/select"

	// Counters for statistics
	var (
		submitted    int64
		failed       int64
		touchBoosted int64
	)

	// Winner tally needs a lock; the counter path stays atomic
	var winMu sync.Mutex
	wins := make(map[string]int)

	// Progress reporting; the timestamp is shared by all workers
	var lastReportNs int64
	reportInterval := int64(time.Second)

	// Create worker pool
	batchChan := make(chan Batch, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for batch := range batchChan {
				select {
				case <-ctx.Done():
					return
				default:
					winner, boosted, err := submitSingleBatch(client, url, batch)

					atomic.AddInt64(&submitted, 1)
					if err != nil {
						atomic.AddInt64(&failed, 1)
					} else {
						if boosted {
							atomic.AddInt64(&touchBoosted, 1)
						}
						winMu.Lock()
						wins[winner]++
						winMu.Unlock()
					}

					// Progress reporting; CAS keeps one reporter per interval
					now := time.Now().UnixNano()
					last := atomic.LoadInt64(&lastReportNs)
					if now-last >= reportInterval && atomic.CompareAndSwapInt64(&lastReportNs, last, now) {
						total := atomic.LoadInt64(&submitted)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("progress: %d/%d submitted (failed: %d)", total, len(batches), fail)
						} else {
							fmt.Printf("\rsubmitted: %d/%d (failed: %d)", total, len(batches), fail)
						}
					}
				}
			}
		}(i)
	}

	// Send batches to workers
	go func() {
		defer close(batchChan)
		for _, batch := range batches {
			select {
			case <-ctx.Done():
				return
			case batchChan <- batch:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	// Update stats
	stats.BatchesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.BatchesFailed = int(atomic.LoadInt64(&failed))
	stats.TouchBoosted = int(atomic.LoadInt64(&touchBoosted))
	stats.WinsByTiming = wins

	log.Printf("batch submission completed: submitted %d, failed %d, touch boosted %d",
		stats.BatchesSubmitted, stats.BatchesFailed, stats.TouchBoosted)

	return nil
}

// submitSingleBatch submits a single batch and returns the winning timing name.
func submitSingleBatch(client *HTTPClient, url string, batch Batch) (string, bool, error) {
	resp, err := client.Post(url, batch)
	if err != nil {
		return "", false, err
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return "", false, err
	}

	if resp.StatusCode != StatusOK {
		return "", false, fmt.Errorf("selection failed with status %d: %s", resp.StatusCode, string(body))
	}

	var sel SelectResponse
	if err := unmarshalJSON(body, &sel); err != nil {
		return "", false, fmt.Errorf("failed to parse selection response: %w", err)
	}

	return sel.Timing.Name, sel.ConsideredTouch, nil
}
