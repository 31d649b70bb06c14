package signal

import (
	"encoding/json"
	"strconv"
	"time"

	"proctorhub/internal/core/domain"
)

// Message is the wire envelope for every frame on the participant channel.
// Payload shape depends on Type.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinSessionPayload struct {
	SessionID domain.SessionID `json:"sessionId"`
	Role      string           `json:"role"`
	Name      string           `json:"name"`
}

type ParticipantJoinedPayload struct {
	SessionID domain.SessionID `json:"sessionId"`
	Role      string           `json:"role"`
	Name      string           `json:"name"`
}

// SignalPayload carries an opaque peer-negotiation blob. Data is relayed
// verbatim and never parsed; negotiation semantics live entirely in the
// clients' media layer.
type SignalPayload struct {
	SessionID domain.SessionID `json:"sessionId"`
	To        domain.ConnID    `json:"to,omitempty"`
	Data      json.RawMessage  `json:"data"`
}

type SignalRelayPayload struct {
	From domain.ConnID   `json:"from"`
	Data json.RawMessage `json:"data"`
}

// DetectionEventPayload is the ingestion form of a detection event. Ts is
// kept raw: clients send either an RFC3339 string or Unix milliseconds, and
// an unparseable value falls back to server time rather than rejecting the
// event.
type DetectionEventPayload struct {
	SessionID domain.SessionID `json:"sessionId"`
	Type      string           `json:"type"`
	Meta      json.RawMessage  `json:"meta,omitempty"`
	Ts        json.RawMessage  `json:"ts,omitempty"`
}

type DetectionEventBroadcast struct {
	ID        string           `json:"id"`
	SessionID domain.SessionID `json:"sessionId"`
	Type      string           `json:"type"`
	Meta      json.RawMessage  `json:"meta,omitempty"`
	Ts        time.Time        `json:"ts"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// parseTimestamp accepts an RFC3339 string or a Unix-millisecond number.
// The zero time signals "unparseable, assign server time".
func parseTimestamp(raw json.RawMessage) time.Time {
	if len(raw) == 0 {
		return time.Time{}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		// Some detectors stringify epoch milliseconds.
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
			return time.UnixMilli(ms)
		}
		return time.Time{}
	}

	var ms int64
	if err := json.Unmarshal(raw, &ms); err == nil && ms > 0 {
		return time.UnixMilli(ms)
	}

	return time.Time{}
}
