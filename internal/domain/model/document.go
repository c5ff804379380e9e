// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// JSON keys owned by Document. Any other top-level key in the persisted
// object is carried through untouched.
const (
	keyScores   = "scores"
	keyRevealed = "revealed"
)

// ScoreEntry is one judge's assessment of one team.
// The numeric fields are opaque to the backend; no range is enforced.
type ScoreEntry struct {
	Business     float64 `json:"business"`
	Innovation   float64 `json:"innovation"`
	Readiness    float64 `json:"readiness"`
	Presentation float64 `json:"presentation"`
	Comment      string  `json:"comment"`
}

// Scores maps judge id -> team id -> entry.
type Scores map[string]map[string]ScoreEntry

// Document is the single persisted state object.
type Document struct {
	Scores   Scores
	Revealed bool

	// extra holds top-level keys this package does not interpret
	// (team rosters and the like) so a load/save cycle preserves them.
	extra map[string]json.RawMessage
}

// NewDocument returns an empty, fully formed document.
func NewDocument() Document {
	return Document{Scores: Scores{}}
}

// SetScore inserts or replaces the entry at scores[judgeID][teamID].
func (d *Document) SetScore(judgeID, teamID string, entry ScoreEntry) {
	if d.Scores == nil {
		d.Scores = Scores{}
	}
	teams, ok := d.Scores[judgeID]
	if !ok {
		teams = make(map[string]ScoreEntry)
		d.Scores[judgeID] = teams
	}
	teams[teamID] = entry
}

// Entry looks up the entry a judge gave a team.
func (d Document) Entry(judgeID, teamID string) (ScoreEntry, bool) {
	e, ok := d.Scores[judgeID][teamID]
	return e, ok
}

// Extra returns the raw value of an uninterpreted top-level key.
func (d Document) Extra(key string) (json.RawMessage, bool) {
	v, ok := d.extra[key]
	return v, ok
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	out := Document{Revealed: d.Revealed, Scores: make(Scores, len(d.Scores))}
	for judge, teams := range d.Scores {
		out.Scores[judge] = maps.Clone(teams)
	}
	if d.extra != nil {
		out.extra = make(map[string]json.RawMessage, len(d.extra))
		for k, v := range d.extra {
			out.extra[k] = bytes.Clone(v)
		}
	}
	return out
}

// MarshalJSON writes scores, revealed and any preserved keys as one object.
func (d Document) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(d.extra)+2)
	for k, v := range d.extra {
		obj[k] = v
	}
	scores := d.Scores
	if scores == nil {
		scores = Scores{}
	}
	obj[keyScores] = scores
	obj[keyRevealed] = d.Revealed
	return json.Marshal(obj)
}

// UnmarshalJSON accepts any JSON object. Missing or null scores decode to an
// empty map; a missing revealed flag decodes to false.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("document must be a JSON object")
	}

	doc := NewDocument()
	if v, ok := raw[keyScores]; ok {
		if err := json.Unmarshal(v, &doc.Scores); err != nil {
			return fmt.Errorf("decode %s: %w", keyScores, err)
		}
		if doc.Scores == nil {
			doc.Scores = Scores{}
		}
		delete(raw, keyScores)
	}
	if v, ok := raw[keyRevealed]; ok {
		if err := json.Unmarshal(v, &doc.Revealed); err != nil {
			return fmt.Errorf("decode %s: %w", keyRevealed, err)
		}
		delete(raw, keyRevealed)
	}
	if len(raw) > 0 {
		doc.extra = raw
	}
	*d = doc
	return nil
}
