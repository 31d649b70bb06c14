package ports

import (
	"context"
	"io"

	"proctorhub/internal/core/domain"
)

// RoomRegistry tracks which live connections belong to which session. It is
// process-local and rebuilt from scratch on restart; live participants simply
// rejoin. A connection belongs to at most one session at a time; joining a
// second session replaces the previous registration.
type RoomRegistry interface {
	Join(connID domain.ConnID, sessionID domain.SessionID, role domain.Role, name string)
	Leave(connID domain.ConnID)
	Member(connID domain.ConnID) (domain.Member, bool)
	Members(sessionID domain.SessionID) []domain.ConnID
	MembersExcept(sessionID domain.SessionID, connID domain.ConnID) []domain.ConnID
	Sessions() int
}

// Report is a session's stored metadata plus its full ordered event log.
// Session is nil when no session record exists; events may still be present
// for such an identifier.
type Report struct {
	Session *domain.Session `json:"session"`
	Events  []*domain.Event `json:"events"`
}

type ReportService interface {
	GetReport(ctx context.Context, id domain.SessionID) (*Report, error)
}

// RecordingUploader pushes a finished interview recording to blob storage and
// returns its public URL. The core never stores recording bytes itself.
type RecordingUploader interface {
	Upload(ctx context.Context, id domain.SessionID, r io.Reader, size int64, contentType string) (string, error)
}
