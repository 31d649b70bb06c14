package ports

import (
	"context"

	"proctorhub/internal/core/domain"
)

// SessionRepository is the durable session-metadata store. Upsert is
// create-if-absent, merge-if-present: concurrent upserts to the same session
// must not corrupt the record (last-writer-wins per field, except StartTime
// which is first-write-wins).
type SessionRepository interface {
	Upsert(ctx context.Context, id domain.SessionID, patch domain.SessionPatch) error
	Get(ctx context.Context, id domain.SessionID) (*domain.Session, error)
}

// EventRepository is the durable, time-ordered detection-event log. Append
// assigns the event ID (and the server timestamp when Ts is zero) and returns
// only after the write is durable. ListBySession returns events ordered by Ts
// ascending with insertion order breaking ties; repeated reads return the
// identical order.
type EventRepository interface {
	Append(ctx context.Context, event *domain.Event) (*domain.Event, error)
	ListBySession(ctx context.Context, id domain.SessionID) ([]*domain.Event, error)
}
