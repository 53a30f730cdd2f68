package config

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ConnectRedis returns nil without error when no address is configured;
// features backed by Redis are then disabled.
func ConnectRedis(ctx context.Context, addr, password string, log logrus.FieldLogger) (*redis.Client, error) {
	if addr == "" {
		log.Warn("REDIS_ADDRESS not set, issue rate limiting disabled")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}

	log.WithField("address", addr).Info("Connected to Redis")
	return client, nil
}
