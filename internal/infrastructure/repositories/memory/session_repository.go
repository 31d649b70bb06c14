package memory

import (
	"context"
	"sync"

	"proctorhub/internal/core/domain"
	"proctorhub/internal/core/ports"
)

type MemorySessionRepository struct {
	sessions map[domain.SessionID]*domain.Session
	mu       sync.RWMutex
}

func NewMemorySessionRepository() ports.SessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[domain.SessionID]*domain.Session),
	}
}

// Upsert creates the record if absent and merges the patch otherwise. Fields
// are last-writer-wins except StartTime, which keeps the first value ever
// written so candidate rejoins never move the session start.
func (r *MemorySessionRepository) Upsert(ctx context.Context, id domain.SessionID, patch domain.SessionPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		session = &domain.Session{SessionID: id}
		r.sessions[id] = session
	}

	if patch.CandidateName != nil {
		session.CandidateName = *patch.CandidateName
	}
	if patch.InterviewerName != nil {
		session.InterviewerName = *patch.InterviewerName
	}
	if patch.StartTime != nil && session.StartTime == nil {
		t := *patch.StartTime
		session.StartTime = &t
	}
	if patch.EndTime != nil {
		t := *patch.EndTime
		session.EndTime = &t
	}
	if patch.VideoURL != nil {
		session.VideoURL = *patch.VideoURL
	}

	return nil
}

func (r *MemorySessionRepository) Get(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	out := *session
	return &out, nil
}
