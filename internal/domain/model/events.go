package model

// Broadcast event names.
const (
	EventScoresUpdated = "scores_updated"
	EventReveal        = "reveal"
	EventReset         = "reset"
)

// ScoresUpdated tells viewers which cell changed. It deliberately carries no
// score values; viewers re-fetch the document.
type ScoresUpdated struct {
	JudgeID string `json:"judgeId"`
	TeamID  string `json:"teamId"`
}

// Empty is the payload of reveal and reset events. It encodes as {}.
type Empty struct{}
