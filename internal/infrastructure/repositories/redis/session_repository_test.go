package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"proctorhub/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func strPtr(s string) *string { return &s }

func TestRedisSessionRepository_GetMissing(t *testing.T) {
	repo := NewRedisSessionRepository(newTestClient(t))

	_, err := repo.Get(context.Background(), "nope")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRedisSessionRepository_UpsertMergesFields(t *testing.T) {
	repo := NewRedisSessionRepository(newTestClient(t))
	ctx := context.Background()

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	if err := repo.Upsert(ctx, "s1", domain.SessionPatch{
		CandidateName: strPtr("Alice"),
		StartTime:     &start,
	}); err != nil {
		t.Fatalf("upsert candidate: %v", err)
	}
	if err := repo.Upsert(ctx, "s1", domain.SessionPatch{
		InterviewerName: strPtr("Bob"),
	}); err != nil {
		t.Fatalf("upsert interviewer: %v", err)
	}

	session, err := repo.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if session.CandidateName != "Alice" || session.InterviewerName != "Bob" {
		t.Fatalf("fields not merged: %+v", session)
	}
	if session.StartTime == nil || !session.StartTime.Equal(start) {
		t.Fatalf("start time lost: %v", session.StartTime)
	}
}

func TestRedisSessionRepository_StartTimeFirstWriteWins(t *testing.T) {
	repo := NewRedisSessionRepository(newTestClient(t))
	ctx := context.Background()

	first := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	second := first.Add(15 * time.Minute)

	if err := repo.Upsert(ctx, "s1", domain.SessionPatch{StartTime: &first}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := repo.Upsert(ctx, "s1", domain.SessionPatch{StartTime: &second}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	session, err := repo.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !session.StartTime.Equal(first) {
		t.Fatalf("expected first start time %v, got %v", first, session.StartTime)
	}
}

func TestRedisSessionRepository_EndTimeAndVideoOverwrite(t *testing.T) {
	repo := NewRedisSessionRepository(newTestClient(t))
	ctx := context.Background()

	end1 := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	end2 := end1.Add(time.Minute)

	if err := repo.Upsert(ctx, "s1", domain.SessionPatch{
		EndTime:  &end1,
		VideoURL: strPtr("https://bucket/old.webm"),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Upsert(ctx, "s1", domain.SessionPatch{
		EndTime:  &end2,
		VideoURL: strPtr("https://bucket/new.webm"),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	session, err := repo.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !session.EndTime.Equal(end2) || session.VideoURL != "https://bucket/new.webm" {
		t.Fatalf("expected latest end/video to win: %+v", session)
	}
}
