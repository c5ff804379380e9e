package rehearsal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body. A nil body sends nothing.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
}

func scorePath(judgeID, teamID string) string {
	return "/api/scores/" + url.PathEscape(judgeID) + "/" + url.PathEscape(teamID)
}

// expectOK posts to path and requires 200 {"ok":true}.
func (c *HTTPClient) expectOK(ctx context.Context, path string, body any) error {
	resp, err := c.Post(ctx, path, body)
	if err != nil {
		return err
	}
	raw, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("POST %s returned %d: %s", path, resp.StatusCode, bytes.TrimSpace(raw))
	}
	var ack struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal(raw, &ack); err != nil || !ack.OK {
		return fmt.Errorf("POST %s returned unexpected body %q", path, bytes.TrimSpace(raw))
	}
	return nil
}

// submitScores posts every submission with at most cfg.Workers in flight.
// Individual failures are counted, not returned.
func submitScores(ctx context.Context, client *HTTPClient, cfg *Config, subs []Submission, stats *Stats) error {
	log := logger.Get().Named("submit")
	log.Info(ctx, "submitting scores", logger.Int("scores", len(subs)), logger.Int("workers", cfg.Workers))

	var submitted, accepted, failed int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, s := range subs {
		g.Go(func() error {
			atomic.AddInt64(&submitted, 1)
			if err := client.expectOK(gctx, scorePath(s.JudgeID, s.TeamID), s.Entry); err != nil {
				atomic.AddInt64(&failed, 1)
				log.Warn(gctx, "score rejected",
					logger.String("judge", s.JudgeID),
					logger.String("team", s.TeamID),
					logger.Error(err),
				)
				return nil
			}
			atomic.AddInt64(&accepted, 1)
			log.Debug(gctx, "score accepted", logger.String("judge", s.JudgeID), logger.String("team", s.TeamID))
			return nil
		})
	}
	err := g.Wait()

	stats.ScoresSubmitted = int(submitted)
	stats.ScoresAccepted = int(accepted)
	stats.ScoresFailed = int(failed)

	log.Info(ctx, "score submission completed",
		logger.Int("accepted", stats.ScoresAccepted),
		logger.Int("failed", stats.ScoresFailed),
	)
	if err != nil {
		return err
	}
	return ctx.Err()
}

// probeInvalidJudge sends a score for a judge the server must not know.
func probeInvalidJudge(ctx context.Context, client *HTTPClient) error {
	resp, err := client.Post(ctx, scorePath(intruderJudge, TeamID(1)), model.ScoreEntry{Business: 10})
	if err != nil {
		return err
	}
	raw, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(raw, &body)
	if resp.StatusCode != http.StatusBadRequest || body.Error != invalidJudge {
		return fmt.Errorf("unknown judge got %d %q, want 400 %q", resp.StatusCode, bytes.TrimSpace(raw), invalidJudge)
	}
	return nil
}

// fetchDocument reads /api/data.
func fetchDocument(ctx context.Context, client *HTTPClient) (model.Document, error) {
	resp, err := client.Get(ctx, "/api/data")
	if err != nil {
		return model.Document{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return model.Document{}, fmt.Errorf("GET /api/data returned %d", resp.StatusCode)
	}
	var doc model.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return model.Document{}, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}
