package domain

import (
	"encoding/json"
	"time"
)

// Event is one detection occurrence reported by a candidate's local detector
// (face absent, looking away, multiple faces, a detected object class, ...).
// Type is an open vocabulary and Meta is detector-specific detail; both are
// stored and relayed verbatim, never interpreted.
type Event struct {
	ID            string          `json:"id"`
	SessionID     SessionID       `json:"sessionId"`
	CandidateName string          `json:"candidateName,omitempty"`
	Type          string          `json:"type"`
	Meta          json.RawMessage `json:"meta,omitempty"`
	Ts            time.Time       `json:"ts"`

	// Seq is the store-assigned insertion sequence, used only to break
	// timestamp ties when listing a session's events.
	Seq uint64 `json:"-"`
}
