package utils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"consultline/config"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

var (
	authCache     *redis.Client
	authCacheOnce sync.Once
)

// NewRedisClient connects to logical database db of the configured Redis and
// checks it answers within two seconds.
func NewRedisClient(ctx context.Context, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis db %d at %s: %w", db, config.AppConfig.RedisAddr, err)
	}
	return client, nil
}

// GetAuthCacheClient returns the client holding revoked tokens (REDIS_AUTH_DB).
// The process cannot authenticate without it, so a failed connection is fatal.
func GetAuthCacheClient() *redis.Client {
	authCacheOnce.Do(func() {
		client, err := NewRedisClient(context.Background(), config.AppConfig.RedisAuthDB)
		if err != nil {
			GetLogger().Fatal("Failed to connect to Redis (auth cache)", zap.Error(err))
		}
		authCache = client
	})
	return authCache
}
