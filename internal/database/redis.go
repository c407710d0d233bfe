package database

import (
	"context"

	"github.com/eduguide/backend/internal/config"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// OpenRedis returns a connected client, or nil when Redis is unreachable.
// Logout revocation and rate limiting are disabled without it.
func OpenRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis connection failed, continuing without redis",
			zap.String("addr", cfg.Addr()), zap.Error(err))
		rdb.Close()
		return nil
	}

	logger.Info("redis connection established", zap.String("addr", cfg.Addr()))
	return rdb
}
