// Package redis opens the go-redis client used by the redis queue driver.
package redis

import (
	"context"
	"fmt"

	"github.com/ncobase/paybatch/data/config"
	"github.com/redis/go-redis/v9"
)

// Connect creates a client from cfg and verifies it with a ping.
func Connect(ctx context.Context, cfg *config.Redis) (*redis.Client, error) {
	if cfg == nil || cfg.Addr == "" {
		return nil, fmt.Errorf("redis: address is empty")
	}

	client := redis.NewClient(Options(cfg))

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: failed to ping server: %w", err)
	}

	return client, nil
}

// Options maps cfg onto go-redis options.
func Options(cfg *config.Redis) *redis.Options {
	return &redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.Db,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		DialTimeout:  cfg.DialTimeout,
	}
}
