package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"proctorhub/internal/core/domain"
	"proctorhub/internal/core/ports"

	"github.com/google/uuid"
)

type MemoryEventRepository struct {
	events map[domain.SessionID][]*domain.Event
	seq    uint64
	mu     sync.RWMutex
}

func NewMemoryEventRepository() ports.EventRepository {
	return &MemoryEventRepository{
		events: make(map[domain.SessionID][]*domain.Event),
	}
}

// Append stores one immutable event, assigning its identifier, insertion
// sequence and, when the caller supplied none, the server timestamp.
func (r *MemoryEventRepository) Append(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *event
	stored.ID = uuid.New().String()
	if stored.Ts.IsZero() {
		stored.Ts = time.Now().UTC()
	}
	r.seq++
	stored.Seq = r.seq

	r.events[stored.SessionID] = append(r.events[stored.SessionID], &stored)

	out := stored
	return &out, nil
}

// ListBySession returns the session's events sorted by timestamp ascending.
// The underlying slice is in insertion order, so the stable sort breaks
// timestamp ties by insertion order and repeated reads are identical.
func (r *MemoryEventRepository) ListBySession(ctx context.Context, id domain.SessionID) ([]*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.events[id]
	out := make([]*domain.Event, 0, len(stored))
	for _, ev := range stored {
		cp := *ev
		out = append(out, &cp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Ts.Before(out[j].Ts)
	})

	return out, nil
}
