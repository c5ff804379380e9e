package rehearsal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
)

// Run executes a complete rehearsal.
func Run(ctx context.Context, cfg *Config) error {
	if len(cfg.Judges) == 0 || cfg.Teams < 1 || cfg.Workers < 1 {
		return errors.New("rehearsal needs at least one judge, one team and one worker")
	}

	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting tally rehearsal",
		logger.String("baseURL", cfg.BaseURL),
		logger.Any("judges", cfg.Judges),
		logger.Int("teams", cfg.Teams),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Bool("verbose", cfg.Verbose))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Connect a viewer
	streamCtx, stopStream := context.WithCancel(ctx)
	defer stopStream()
	// Only the headers are bounded; the connection lives for the whole run.
	streamClient := &http.Client{Transport: &http.Transport{ResponseHeaderTimeout: streamOpenTimeout}}
	resp, err := OpenStream(streamCtx, streamClient, cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("viewer connection failed: %w", err)
	}
	defer resp.Body.Close()

	counter := newEventCounter()
	streamDone := make(chan struct{})
	go func() {
		defer close(streamDone)
		_ = ReadEvents(resp.Body, counter.add)
	}()
	log.Info(ctx, "viewer connected")

	// Step 3: Submit scores concurrently
	subs := Generate(ctx, cfg, stats)
	if err := submitScores(ctx, client, cfg, subs, stats); err != nil {
		return fmt.Errorf("score submission failed: %w", err)
	}
	if stats.ScoresFailed > 0 {
		return fmt.Errorf("score submission failed: %d of %d rejected", stats.ScoresFailed, stats.ScoresSubmitted)
	}

	// Step 4: Unknown judges must be refused
	if err := probeInvalidJudge(ctx, client); err != nil {
		return fmt.Errorf("invalid judge check failed: %w", err)
	}
	log.Info(ctx, "unknown judge refused")

	// Step 5: Reveal, then reset
	if err := client.expectOK(ctx, "/api/reveal", nil); err != nil {
		return fmt.Errorf("reveal failed: %w", err)
	}
	if err := client.expectOK(ctx, "/api/reset", nil); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	// Step 6: The viewer must have seen every step, and the file must hold every score
	want := map[string]int{
		model.EventScoresUpdated: len(subs),
		model.EventReveal:        1,
		model.EventReset:         1,
	}
	waitErr := waitForEvents(ctx, counter, want, streamDone, cfg.Timeout)
	stats.EventsReceived, stats.KeepAlives = counter.snapshot()
	if waitErr != nil {
		return fmt.Errorf("event delivery check failed: %w", waitErr)
	}

	doc, err := fetchDocument(ctx, client)
	if err != nil {
		return fmt.Errorf("document fetch failed: %w", err)
	}
	if err := verifyDocument(ctx, doc, subs, stats); err != nil {
		return fmt.Errorf("document verification failed: %w", err)
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	log.Info(ctx, "rehearsal completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	logger.Get().Info(ctx, "checking service health")

	resp, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// displayFinalStats logs the final rehearsal statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var scoresPerSecond float64
	if stats.Duration > 0 {
		scoresPerSecond = float64(stats.ScoresSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("scoresGenerated", stats.ScoresGenerated),
		logger.Int("scoresSubmitted", stats.ScoresSubmitted),
		logger.Int("scoresAccepted", stats.ScoresAccepted),
		logger.Int("scoresFailed", stats.ScoresFailed),
		logger.Any("eventsReceived", stats.EventsReceived),
		logger.Int("keepAlives", stats.KeepAlives),
		logger.Int("entriesVerified", stats.EntriesVerified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("scoresPerSecond", scoresPerSecond))
}
