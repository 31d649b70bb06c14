package repositories

import (
	"context"
	"testing"

	"proctorhub/internal/core/domain"
	"proctorhub/pkg/config"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap/zaptest"
)

func TestRepositoryFactory_MemoryBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "memory"

	factory, err := NewRepositoryFactory(cfg, zaptest.NewLogger(t).Sugar())
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}
	defer factory.Close()

	sessions := factory.CreateSessionRepository()
	events := factory.CreateEventRepository()
	if sessions == nil || events == nil {
		t.Fatalf("expected repositories for memory backend")
	}
	if err := factory.HealthCheck(context.Background()); err != nil {
		t.Fatalf("memory health check: %v", err)
	}
}

func TestRepositoryFactory_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "redis"
	cfg.Storage.Redis.Address = mr.Addr()

	factory, err := NewRepositoryFactory(cfg, zaptest.NewLogger(t).Sugar())
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}
	defer factory.Close()

	if err := factory.HealthCheck(context.Background()); err != nil {
		t.Fatalf("redis health check: %v", err)
	}

	// The repositories really talk to the store.
	ctx := context.Background()
	sessions := factory.CreateSessionRepository()
	name := "Alice"
	if err := sessions.Upsert(ctx, "s1", domain.SessionPatch{CandidateName: &name}); err != nil {
		t.Fatalf("upsert via redis repo: %v", err)
	}
	got, err := sessions.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get via redis repo: %v", err)
	}
	if got.CandidateName != "Alice" {
		t.Fatalf("round trip broken: %+v", got)
	}
}
