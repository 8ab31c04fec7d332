package cache

import (
	"context"
	"fmt"
	"time"

	"listenboard/config"

	"github.com/go-redis/redis/v8"
)

// RedisClient 是全局Redis客户端
var RedisClient *redis.Client

// ConnectRedis 初始化Redis连接
func ConnectRedis(cfg *config.Config) error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return nil
}

// CloseRedis 关闭Redis连接
func CloseRedis() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}

// CheckFeedKey round-trips a probe key and reports the size of the stored feed, if any.
func CheckFeedKey(ctx context.Context, client *redis.Client, feedKey string) (int64, error) {
	if client == nil {
		return 0, fmt.Errorf("Redis client not initialized")
	}

	probe := feedKey + ":probe"
	if err := client.Set(ctx, probe, "ok", time.Minute).Err(); err != nil {
		return 0, fmt.Errorf("failed to set Redis key: %w", err)
	}
	val, err := client.Get(ctx, probe).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get Redis key: %w", err)
	}
	if val != "ok" {
		return 0, fmt.Errorf("unexpected value from Redis: got %s", val)
	}
	if err := client.Del(ctx, probe).Err(); err != nil {
		return 0, fmt.Errorf("failed to delete Redis key: %w", err)
	}

	size, err := client.StrLen(ctx, feedKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read feed key: %w", err)
	}
	return size, nil
}
