package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"proctorhub/internal/core/domain"
)

func TestEventRepository_AppendAssignsIDAndTimestamp(t *testing.T) {
	repo := NewMemoryEventRepository()

	stored, err := repo.Append(context.Background(), &domain.Event{
		SessionID: "s1",
		Type:      "tab-switch",
		Meta:      json.RawMessage(`{"url":"https://example.com"}`),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if stored.ID == "" {
		t.Errorf("expected assigned event id")
	}
	if stored.Ts.IsZero() {
		t.Errorf("expected server-assigned timestamp")
	}
}

func TestEventRepository_ClientTimestampPreserved(t *testing.T) {
	repo := NewMemoryEventRepository()

	ts := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	stored, err := repo.Append(context.Background(), &domain.Event{
		SessionID: "s1",
		Type:      "face-missing",
		Ts:        ts,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !stored.Ts.Equal(ts) {
		t.Fatalf("expected client timestamp %v preserved, got %v", ts, stored.Ts)
	}
}

func TestEventRepository_ListOrderedByTimestamp(t *testing.T) {
	repo := NewMemoryEventRepository()
	ctx := context.Background()

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	// Append out of timestamp order.
	for _, offset := range []time.Duration{2 * time.Second, 0, time.Second} {
		if _, err := repo.Append(ctx, &domain.Event{
			SessionID: "s1",
			Type:      "noise-detected",
			Ts:        base.Add(offset),
		}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	events, err := repo.ListBySession(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Ts.Before(events[i-1].Ts) {
			t.Fatalf("events out of order at %d: %v before %v", i, events[i].Ts, events[i-1].Ts)
		}
	}
}

func TestEventRepository_TimestampTiesKeepInsertionOrder(t *testing.T) {
	repo := NewMemoryEventRepository()
	ctx := context.Background()

	ts := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		stored, err := repo.Append(ctx, &domain.Event{
			SessionID: "s1",
			Type:      fmt.Sprintf("type-%d", i),
			Ts:        ts,
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		ids = append(ids, stored.ID)
	}

	// Repeated reads must agree with each other and with insertion order.
	for read := 0; read < 3; read++ {
		events, err := repo.ListBySession(ctx, "s1")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for i, ev := range events {
			if ev.ID != ids[i] {
				t.Fatalf("read %d: tie-break order broken at %d", read, i)
			}
		}
	}
}

func TestEventRepository_ConcurrentAppendsAllStored(t *testing.T) {
	repo := NewMemoryEventRepository()
	ctx := context.Background()

	const n = 200
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			if _, err := repo.Append(ctx, &domain.Event{
				SessionID: "s1",
				Type:      "tab-switch",
			}); err != nil {
				t.Errorf("append %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	events, err := repo.ListBySession(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != n {
		t.Fatalf("expected exactly %d events, got %d", n, len(events))
	}
	seen := make(map[string]bool, n)
	for _, ev := range events {
		if seen[ev.ID] {
			t.Fatalf("duplicate event id %s", ev.ID)
		}
		seen[ev.ID] = true
	}
}

func TestEventRepository_SessionsIsolated(t *testing.T) {
	repo := NewMemoryEventRepository()
	ctx := context.Background()

	repo.Append(ctx, &domain.Event{SessionID: "s1", Type: "tab-switch"})
	repo.Append(ctx, &domain.Event{SessionID: "s2", Type: "face-missing"})

	events, err := repo.ListBySession(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].Type != "tab-switch" {
		t.Fatalf("expected only s1 events, got %+v", events)
	}
}
