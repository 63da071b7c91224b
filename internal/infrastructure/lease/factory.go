package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/adinventory/backend/internal/domain/integration"
	"github.com/adinventory/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Lease backends
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// NewRedisClient connects to Redis and checks the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewLocker builds the configured locker. With the redis backend and a nil
// client it falls back to memory and logs a warning.
func NewLocker(cfg config.LeaseConfig, client redis.UniversalClient, logger *zap.Logger) integration.Locker {
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.Backend == BackendMemory {
		logger.Info("Using in-memory sync lease")
		return NewMemoryLocker()
	}
	if client == nil {
		logger.Warn("Redis unavailable, falling back to in-memory sync lease. " +
			"Concurrent runs across instances will not be excluded.")
		return NewMemoryLocker()
	}

	logger.Info("Using Redis sync lease")
	return NewRedisLocker(client, cfg.KeyPrefix)
}
