package voteload

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/nkast/ratekeeper/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "load_test_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the selection load tool.
func ShowHelp() {
	os.Stdout.WriteString(`Ratekeeper Selection Load Tool
==============================

A concurrent tool for exercising the refresh rate selection service with
realistic layer vote batches.

Usage:
  go run cmd/test-votes/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9150")
  -batches int
        Number of layer batches to generate and submit (default 10000)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated batches (default: generated_batches_TIMESTAMP.json)
  -log string
        Log file for test output (default: load_test_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run cmd/test-votes/main.go

  # Test with custom parameters
  go run cmd/test-votes/main.go -batches 50000 -workers 16 -url http://localhost:9150

  # Test with verbose output
  go run cmd/test-votes/main.go -verbose -batches 10000
`)
}
