package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"proctorhub/internal/core/domain"
	"proctorhub/internal/core/ports"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisEventRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisEventRepository(client *redis.Client) ports.EventRepository {
	return &RedisEventRepository{
		client: client,
		prefix: "proctorhub:session:",
	}
}

func (r *RedisEventRepository) eventsKey(id domain.SessionID) string {
	return fmt.Sprintf("%s%s:events", r.prefix, id)
}

func (r *RedisEventRepository) seqKey(id domain.SessionID) string {
	return fmt.Sprintf("%s%s:events:seq", r.prefix, id)
}

// storedEvent is the wire form inside the Redis list. Seq is persisted here
// even though the domain type hides it from API responses.
type storedEvent struct {
	ID            string           `json:"id"`
	SessionID     domain.SessionID `json:"session_id"`
	CandidateName string           `json:"candidate_name,omitempty"`
	Type          string           `json:"type"`
	Meta          json.RawMessage  `json:"meta,omitempty"`
	Ts            time.Time        `json:"ts"`
	Seq           uint64           `json:"seq"`
}

// Append is a durable insert: the event is only broadcast by callers after
// this returns. RPUSH keeps the per-session list in append order, which is
// the tie-break order for equal timestamps.
func (r *RedisEventRepository) Append(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	stored := storedEvent{
		ID:            uuid.New().String(),
		SessionID:     event.SessionID,
		CandidateName: event.CandidateName,
		Type:          event.Type,
		Meta:          event.Meta,
		Ts:            event.Ts,
	}
	if stored.Ts.IsZero() {
		stored.Ts = time.Now().UTC()
	}

	seq, err := r.client.Incr(ctx, r.seqKey(event.SessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to assign event sequence: %w", err)
	}
	stored.Seq = uint64(seq)

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := r.client.RPush(ctx, r.eventsKey(event.SessionID), data).Err(); err != nil {
		return nil, fmt.Errorf("failed to append event to Redis: %w", err)
	}

	return stored.toDomain(), nil
}

func (r *RedisEventRepository) ListBySession(ctx context.Context, id domain.SessionID) ([]*domain.Event, error) {
	raw, err := r.client.LRange(ctx, r.eventsKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read events from Redis: %w", err)
	}

	events := make([]*domain.Event, 0, len(raw))
	for _, item := range raw {
		var stored storedEvent
		if err := json.Unmarshal([]byte(item), &stored); err != nil {
			return nil, fmt.Errorf("corrupt event for session %s: %w", id, err)
		}
		events = append(events, stored.toDomain())
	}

	// List order is append order, so the stable sort leaves timestamp ties
	// in insertion order.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Ts.Before(events[j].Ts)
	})

	return events, nil
}

func (s *storedEvent) toDomain() *domain.Event {
	return &domain.Event{
		ID:            s.ID,
		SessionID:     s.SessionID,
		CandidateName: s.CandidateName,
		Type:          s.Type,
		Meta:          s.Meta,
		Ts:            s.Ts,
		Seq:           s.Seq,
	}
}
