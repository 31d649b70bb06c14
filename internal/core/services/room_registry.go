package services

import (
	"sync"

	"proctorhub/internal/core/domain"
	"proctorhub/internal/core/ports"
)

// roomRegistry is the in-memory session membership map. It is the only shared
// mutable state of the relay besides storage, so every mutation runs under
// the mutex: membership must never lose or duplicate an entry under
// concurrent joins.
type roomRegistry struct {
	mu      sync.RWMutex
	members map[domain.ConnID]*domain.Member
	rooms   map[domain.SessionID]map[domain.ConnID]struct{}
}

func NewRoomRegistry() ports.RoomRegistry {
	return &roomRegistry{
		members: make(map[domain.ConnID]*domain.Member),
		rooms:   make(map[domain.SessionID]map[domain.ConnID]struct{}),
	}
}

// Join records membership. A connection belongs to at most one session;
// joining again from the same connection replaces the previous registration
// (last join wins).
func (r *roomRegistry) Join(connID domain.ConnID, sessionID domain.SessionID, role domain.Role, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.members[connID]; ok {
		r.removeFromRoom(prev.SessionID, connID)
	}

	r.members[connID] = &domain.Member{
		ConnID:    connID,
		SessionID: sessionID,
		Role:      role,
		Name:      name,
	}
	if r.rooms[sessionID] == nil {
		r.rooms[sessionID] = make(map[domain.ConnID]struct{})
	}
	r.rooms[sessionID][connID] = struct{}{}
}

// Leave removes the connection from whatever session it was in. Idempotent.
func (r *roomRegistry) Leave(connID domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	member, ok := r.members[connID]
	if !ok {
		return
	}
	r.removeFromRoom(member.SessionID, connID)
	delete(r.members, connID)
}

// removeFromRoom must be called with the lock held.
func (r *roomRegistry) removeFromRoom(sessionID domain.SessionID, connID domain.ConnID) {
	if room, ok := r.rooms[sessionID]; ok {
		delete(room, connID)
		if len(room) == 0 {
			delete(r.rooms, sessionID)
		}
	}
}

func (r *roomRegistry) Member(connID domain.ConnID) (domain.Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	member, ok := r.members[connID]
	if !ok {
		return domain.Member{}, false
	}
	return *member, true
}

func (r *roomRegistry) Members(sessionID domain.SessionID) []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[sessionID]
	out := make([]domain.ConnID, 0, len(room))
	for connID := range room {
		out = append(out, connID)
	}
	return out
}

func (r *roomRegistry) MembersExcept(sessionID domain.SessionID, connID domain.ConnID) []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[sessionID]
	out := make([]domain.ConnID, 0, len(room))
	for id := range room {
		if id != connID {
			out = append(out, id)
		}
	}
	return out
}

func (r *roomRegistry) Sessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
