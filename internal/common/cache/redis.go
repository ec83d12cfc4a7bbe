package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/logger"
)

type Redis struct {
	Client *redis.Client
}

func NewRedis(addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("redis_connection_failed", "Failed to connect to Redis", "", "", err.Error())
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis_connected", "Connected to Redis successfully", "", "")
	return &Redis{Client: client}, nil
}

func (r *Redis) Close() {
	if r.Client != nil {
		_ = r.Client.Close()
		logger.Info("redis_connection_closed", "Redis connection closed", "", "")
	}
}
