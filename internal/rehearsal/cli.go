package rehearsal

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/tally/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0o600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string, verbose bool) error {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "rehearsal_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithOutput(io.MultiWriter(os.Stdout, file))); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		if err := logger.SetLevelString("debug"); err != nil {
			return err
		}
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the rehearsal tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Tally Rehearsal Tool
====================

Runs one full judging round against a live server: every judge scores every
team concurrently, an unknown judge is refused, the results are revealed and
reset, and a viewer connected to /api/events must see every step.

Scores are written to the server's data file under rehearsal team ids.

Usage:
  go run ./cmd/rehearse [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:3456")
  -judges string
        Comma separated judge ids (default "aleksej,egor")
  -teams int
        Number of teams each judge scores (default 8)
  -workers int
        Number of concurrent submitters (default CPU cores * 2)
  -timeout duration
        HTTP request timeout and event wait budget (default 30s)
  -seed int
        Seed for generated scores (default: current time)
  -log string
        Log file for rehearsal output (default: rehearsal_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Rehearse against a local server
  go run ./cmd/rehearse

  # Rehearse against the venue server with more teams
  go run ./cmd/rehearse -url http://10.0.0.5:3456 -teams 20

Missing entries after the round mean concurrent submissions overwrote each
other; start the server with serialize_writes enabled or use -workers 1.
`)
}
