package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/okian/tally/internal/rehearsal"
)

// Default configuration constants.
const (
	defaultJudges      = "aleksej,egor"
	defaultTeams       = 8
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 5 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:3456", "Base URL of the service")
		judges  = flag.String("judges", defaultJudges, "Comma separated judge ids")
		teams   = flag.Int("teams", defaultTeams, "Number of teams each judge scores")
		workers = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout and event wait budget")
		seed    = flag.Int64("seed", 0, "Seed for generated scores (default: current time)")
		logFile = flag.String("log", "", "Log file for rehearsal output (default: rehearsal_TIMESTAMP.log)")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		rehearsal.ShowHelp()
		return
	}

	if err := rehearsal.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &rehearsal.Config{
		BaseURL: strings.TrimRight(*baseURL, "/"),
		Judges:  splitJudges(*judges),
		Teams:   *teams,
		Workers: *workers,
		Timeout: *timeout,
		Seed:    *seed,
		LogFile: *logFile,
		Verbose: *verbose,
	}

	if err := rehearsal.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Rehearsal failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1) //nolint:gocritic // cancel already called
	}
}

func splitJudges(s string) []string {
	var out []string
	for _, j := range strings.Split(s, ",") {
		if j = strings.TrimSpace(j); j != "" {
			out = append(out, j)
		}
	}
	return out
}
