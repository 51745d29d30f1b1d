package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/nkast/ratekeeper/internal/voteload"
)

// Default configuration constants.
const (
	defaultNumBatches  = 10000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9150", "Base URL of the service")
		numBatches = flag.Int("batches", defaultNumBatches, "Number of layer batches to generate and submit")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for generated batches (default: generated_batches_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for test output (default: load_test_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		voteload.ShowHelp()
		return
	}

	// Setup logging
	if err := voteload.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &voteload.Config{
		BaseURL:    *baseURL,
		NumBatches: *numBatches,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	// Run the test
	if err := voteload.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Load test failed: " + err.Error() + "\n")
		return
	}
}
