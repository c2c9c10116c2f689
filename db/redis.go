package db

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jesseboth/autocross/config"
)

// SetupRedis connects the leaderboard cache. Returns nil when no
// REDIS_ADDR is configured; callers treat nil as cache disabled.
func SetupRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	return rdb
}
