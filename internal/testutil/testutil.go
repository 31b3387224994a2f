// Package testutil 連接測試用的 PostgreSQL (5433) 與 Redis (6380)。
// 容器未啟動時整合測試直接跳過。
package testutil

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"

	"go-gin-event-commerce/config"
	"go-gin-event-commerce/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Setup 連接並套用 schema
func Setup() (*pgxpool.Pool, *redis.Client, func(), error) {
	cfg := config.LoadTestConfig()

	testDB, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize test database: %v", err)
	}
	if err := database.Migrate(context.Background(), testDB); err != nil {
		testDB.Close()
		return nil, nil, nil, fmt.Errorf("failed to migrate test database: %v", err)
	}

	testRdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		testDB.Close()
		return nil, nil, nil, fmt.Errorf("failed to initialize redis: %v", err)
	}

	cleanup := func() {
		testDB.Close()
		testRdb.Close()
	}
	return testDB, testRdb, cleanup, nil
}

// SetupRedisOnly 僅初始化 Redis，用於只依賴 Redis 的測試（如 queue 整合測試）
func SetupRedisOnly() (*redis.Client, func(), error) {
	cfg := config.LoadTestConfig()
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize redis: %v", err)
	}
	cleanup := func() { rdb.Close() }
	return rdb, cleanup, nil
}

// RunOrSkip 供 TestMain 使用：setup 失敗時不執行任何測試並以 0 結束
func RunOrSkip(m *testing.M, setupErr error, cleanup func()) {
	if setupErr != nil {
		log.Printf("skipping integration tests: %v", setupErr)
		os.Exit(0)
	}
	code := m.Run()
	if cleanup != nil {
		cleanup()
	}
	os.Exit(code)
}
