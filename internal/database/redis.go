package database

import (
	"context"
	"fmt"

	"go-gin-event-commerce/config"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// InitRedis 庫存、冪等鍵、活動快取與訂單 stream 共用同一個 client
func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
	})

	if cfg.EnableTracing {
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("instrument redis tracing: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout(cfg.DialTimeout))
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}
