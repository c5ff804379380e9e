package rehearsal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
)

// eventCounter tallies events read off the stream.
type eventCounter struct {
	mu         sync.Mutex
	counts     map[string]int
	keepAlives int
	changed    chan struct{}
}

func newEventCounter() *eventCounter {
	return &eventCounter{counts: make(map[string]int), changed: make(chan struct{}, 1)}
}

func (c *eventCounter) add(e Event) {
	c.mu.Lock()
	if e.Name == KeepAlive {
		c.keepAlives++
	} else {
		c.counts[e.Name]++
	}
	c.mu.Unlock()

	select {
	case c.changed <- struct{}{}:
	default:
	}
}

func (c *eventCounter) snapshot() (map[string]int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out, c.keepAlives
}

func reached(got, want map[string]int) bool {
	for name, n := range want {
		if got[name] < n {
			return false
		}
	}
	return true
}

// waitForEvents blocks until the stream delivered at least want, the stream
// ended, or budget ran out. It then requires the counts to match exactly.
func waitForEvents(ctx context.Context, c *eventCounter, want map[string]int, streamDone <-chan struct{}, budget time.Duration) error {
	timer := time.NewTimer(budget)
	defer timer.Stop()

	for {
		got, _ := c.snapshot()
		if reached(got, want) {
			break
		}
		select {
		case <-c.changed:
		case <-streamDone:
			got, _ = c.snapshot()
			if reached(got, want) {
				continue
			}
			return fmt.Errorf("event stream ended early: got %v, want %v", got, want)
		case <-timer.C:
			got, _ = c.snapshot()
			return fmt.Errorf("timed out waiting for events: got %v, want %v", got, want)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	got, _ := c.snapshot()
	for name, n := range want {
		if got[name] != n {
			return fmt.Errorf("event %s delivered %d times, want %d", name, got[name], n)
		}
	}
	return nil
}

// verifyDocument checks that every submission is stored as sent and the
// reveal flag was reset.
func verifyDocument(ctx context.Context, doc model.Document, subs []Submission, stats *Stats) error {
	var missing, changed int
	for _, s := range subs {
		got, ok := doc.Entry(s.JudgeID, s.TeamID)
		switch {
		case !ok:
			missing++
			logger.Get().Debug(ctx, "entry missing", logger.String("judge", s.JudgeID), logger.String("team", s.TeamID))
		case got != s.Entry:
			changed++
			logger.Get().Debug(ctx, "entry differs", logger.String("judge", s.JudgeID), logger.String("team", s.TeamID))
		default:
			stats.EntriesVerified++
		}
	}

	if doc.Revealed {
		return fmt.Errorf("document still revealed after reset")
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d entries missing; concurrent writes were lost", missing, len(subs))
	}
	if changed > 0 {
		return fmt.Errorf("%d of %d entries differ from what was sent", changed, len(subs))
	}
	return nil
}
