package redis

import (
	"context"
	"fmt"

	"TicketBlitz_Recommendation/backend/go/internal/config"

	"github.com/go-redis/redis/v8"
)

// NewClient 创建 Redis 客户端。连接是惰性的，断开后由客户端自动重连。
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})
}

// Ping 检查 Redis 连接。
func Ping(ctx context.Context, rdb *redis.Client) error {
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("无法连接到 Redis: %w", err)
	}
	return nil
}
