package redis

import (
	"context"
	"fmt"
	"time"

	"proctorhub/internal/core/domain"
	"proctorhub/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisSessionRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisSessionRepository(client *redis.Client) ports.SessionRepository {
	return &RedisSessionRepository{
		client: client,
		prefix: "proctorhub:session:",
	}
}

func (r *RedisSessionRepository) sessionKey(id domain.SessionID) string {
	return r.prefix + string(id)
}

// Upsert merges the patch into the session hash. Each field is a separate
// hash field so concurrent upserts from different participants never clobber
// each other's fields. StartTime uses HSETNX: the first write sticks.
func (r *RedisSessionRepository) Upsert(ctx context.Context, id domain.SessionID, patch domain.SessionPatch) error {
	key := r.sessionKey(id)

	pipe := r.client.TxPipeline()
	pipe.HSetNX(ctx, key, "session_id", string(id))
	if patch.CandidateName != nil {
		pipe.HSet(ctx, key, "candidate_name", *patch.CandidateName)
	}
	if patch.InterviewerName != nil {
		pipe.HSet(ctx, key, "interviewer_name", *patch.InterviewerName)
	}
	if patch.StartTime != nil {
		pipe.HSetNX(ctx, key, "start_time", patch.StartTime.UTC().Format(time.RFC3339Nano))
	}
	if patch.EndTime != nil {
		pipe.HSet(ctx, key, "end_time", patch.EndTime.UTC().Format(time.RFC3339Nano))
	}
	if patch.VideoURL != nil {
		pipe.HSet(ctx, key, "video_url", *patch.VideoURL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to upsert session in Redis: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) Get(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	fields, err := r.client.HGetAll(ctx, r.sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session from Redis: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrSessionNotFound
	}

	session := &domain.Session{
		SessionID:       id,
		CandidateName:   fields["candidate_name"],
		InterviewerName: fields["interviewer_name"],
		VideoURL:        fields["video_url"],
	}
	if v := fields["start_time"]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("corrupt start_time for session %s: %w", id, err)
		}
		session.StartTime = &t
	}
	if v := fields["end_time"]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("corrupt end_time for session %s: %w", id, err)
		}
		session.EndTime = &t
	}

	return session, nil
}
