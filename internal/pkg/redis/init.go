package redis

import (
	"Warbler/internal/api/config"
	"Warbler/internal/pkg/logger"
	"context"
	log "log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"
)

// NewClient 创建 Redis 客户端并挂载日志 Hook。
// Ping 失败只记录告警：缓存不可用时核心读写链路仍需可用
func NewClient(cfg config.RedisConfig) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,

		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	})
	rdb.AddHook(logger.NewRedisLogger(100 * time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unreachable at startup, realtime features degraded", "addr", cfg.Addr, "err", err)
	} else {
		log.Info("Redis initialized successfully", "addr", cfg.Addr)
	}
	return rdb
}
