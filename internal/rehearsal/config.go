// Package rehearsal drives a running scoring server through a full judging
// round and checks that every viewer-visible step arrived.
package rehearsal

import (
	"time"

	"github.com/okian/tally/internal/domain/model"
)

// Config holds configuration for a rehearsal run.
type Config struct {
	BaseURL string        // Base URL of the service
	Judges  []string      // Judges expected to be accepted by the server
	Teams   int           // Number of teams every judge scores
	Workers int           // Number of concurrent submitters
	Timeout time.Duration // HTTP request timeout and event wait budget
	Seed    int64         // Seed for generated scores
	LogFile string        // Log file for rehearsal output
	Verbose bool          // Enable verbose logging
}

// Submission is one score a judge sends for a team.
type Submission struct {
	JudgeID string
	TeamID  string
	Entry   model.ScoreEntry
}

// Event is one message read off the event stream.
type Event struct {
	Name string
	Data string
}

// Stats holds rehearsal statistics.
type Stats struct {
	ScoresGenerated int
	ScoresSubmitted int
	ScoresAccepted  int
	ScoresFailed    int
	EventsReceived  map[string]int
	KeepAlives      int
	EntriesVerified int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
