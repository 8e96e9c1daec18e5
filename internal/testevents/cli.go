package testevents

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/quizarena/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging sends log output to stdout and logFile. If logFile is
// empty, a timestamped filename is generated. The returned function closes
// the file.
func SetupLogging(logFile string, verbose bool) (func() error, error) {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "test_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger.SetOutput(io.MultiWriter(os.Stdout, file))
	if err := logger.Init(); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file.Close, nil
}

// ShowHelp prints usage information for the load test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Quiz Arena Load Test Tool
=========================

Drives a running quizarena service over HTTP and verifies the results:
creates cards, submits reviews concurrently (resending some to check
deduplication), waits for the workers to apply them, checks every card's
schedule against its review history, then plays a tournament to the end and
checks the standings.

Usage:
  go run ./cmd/test-events [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -users int
        Number of study users (default 20)
  -cards int
        Cards per user (default 10)
  -reviews int
        Reviews per card (default 5)
  -resubmit int
        Send every Nth review twice; 0 disables (default 7)
  -players int
        Tournament players; 0 skips the tournament (default 13)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -settle duration
        How long to wait for queued reviews (default 30s)
  -output string
        Write a JSON report to this file
  -log string
        Log file for test output (default: test_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run ./cmd/test-events

  # Heavier study load against another port
  go run ./cmd/test-events -users 200 -reviews 20 -workers 32 -url http://localhost:8080

  # Tournament only
  go run ./cmd/test-events -users 1 -cards 1 -reviews 0 -players 64
`)
}
