package repositories

import (
	"context"

	"proctorhub/internal/core/ports"
	"proctorhub/internal/infrastructure/repositories/memory"
	"proctorhub/internal/infrastructure/repositories/postgres"
	redisrepo "proctorhub/internal/infrastructure/repositories/redis"
	"proctorhub/pkg/config"
	"proctorhub/pkg/retry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RepositoryFactory creates the session and event repositories for the
// configured backend, falling back to memory when the backing store cannot
// be reached. Room membership is deliberately never persisted here: it
// mirrors live connections and is rebuilt on restart.
type RepositoryFactory struct {
	backend     string
	redisClient *redis.Client
	db          *gorm.DB
	logger      *zap.SugaredLogger
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		backend: cfg.Storage.Backend,
		logger:  logger,
	}

	dialRetry := retry.DefaultConfig()

	switch cfg.Storage.Backend {
	case "redis":
		client, err := retry.RetryWithResult(context.Background(), dialRetry, func() (*redis.Client, error) {
			return redisrepo.NewRedisClient(
				cfg.Storage.Redis.Address,
				cfg.Storage.Redis.Password,
				cfg.Storage.Redis.DB,
				cfg.Storage.Redis.PoolSize,
				logger,
			)
		})
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory repositories",
				"error", err,
			)
			factory.backend = "memory"
		} else {
			factory.redisClient = client
			logger.Info("using Redis repositories")
		}

	case "postgres":
		db, err := retry.RetryWithResult(context.Background(), dialRetry, func() (*gorm.DB, error) {
			return postgres.Open(
				cfg.Storage.Postgres.DSN,
				cfg.Storage.Postgres.MaxOpenConns,
				cfg.Storage.Postgres.MaxIdleConns,
			)
		})
		if err != nil {
			logger.Warnw("failed to connect to Postgres, falling back to memory repositories",
				"error", err,
			)
			factory.backend = "memory"
		} else {
			factory.db = db
			logger.Info("using Postgres repositories")
		}
	}

	if factory.backend == "memory" {
		logger.Info("using memory repositories")
	}

	return factory, nil
}

// CreateSessionRepository creates a session repository for the active backend.
func (f *RepositoryFactory) CreateSessionRepository() ports.SessionRepository {
	switch {
	case f.backend == "redis" && f.redisClient != nil:
		return redisrepo.NewRedisSessionRepository(f.redisClient)
	case f.backend == "postgres" && f.db != nil:
		return postgres.NewPostgresSessionRepository(f.db)
	default:
		return memory.NewMemorySessionRepository()
	}
}

// CreateEventRepository creates an event repository for the active backend.
func (f *RepositoryFactory) CreateEventRepository() ports.EventRepository {
	switch {
	case f.backend == "redis" && f.redisClient != nil:
		return redisrepo.NewRedisEventRepository(f.redisClient)
	case f.backend == "postgres" && f.db != nil:
		return postgres.NewPostgresEventRepository(f.db)
	default:
		return memory.NewMemoryEventRepository()
	}
}

// Close closes the backing store connection if one is open.
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	if f.db != nil {
		if sqlDB, err := f.db.DB(); err == nil {
			return sqlDB.Close()
		}
	}
	return nil
}

// HealthCheck pings the backing store.
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.redisClient != nil {
		return f.redisClient.Ping(ctx).Err()
	}
	if f.db != nil {
		sqlDB, err := f.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
	return nil
}
