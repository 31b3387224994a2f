package repository_test

import (
	"context"
	"testing"

	"go-gin-event-commerce/internal/model"
	"go-gin-event-commerce/internal/repository"
	"go-gin-event-commerce/internal/testutil"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// testDB / testRdb 由 TestMain 初始化
var (
	testDB  *pgxpool.Pool
	testRdb *redis.Client
)

func TestMain(m *testing.M) {
	var (
		cleanup func()
		err     error
	)
	testDB, testRdb, cleanup, err = testutil.Setup()
	testutil.RunOrSkip(m, err, cleanup)
}

// setupTestWithTruncate 清空所有測試資料，保留 schema
func setupTestWithTruncate(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if _, err := testDB.Exec(ctx, "TRUNCATE events, orders"); err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}
	// 只清活動快取，其他 package 的整合測試共用同一個 Redis DB
	iter := testRdb.Scan(ctx, 0, "event:*", 100).Iterator()
	for iter.Next(ctx) {
		testRdb.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		t.Fatalf("Failed to clear event cache: %v", err)
	}
}

// setupTestWithTransaction 使用 Transaction Rollback 方式
func setupTestWithTransaction(t *testing.T) (pgx.Tx, func()) {
	t.Helper()
	ctx := context.Background()

	tx, err := testDB.Begin(ctx)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}

	cleanup := func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			t.Logf("Warning: failed to rollback transaction: %v", err)
		}
	}
	return tx, cleanup
}

func newEventRepository() repository.EventRepository {
	return repository.NewEventRepository(testDB)
}

func newOrderRepository() repository.OrderRepository {
	return repository.NewOrderRepository(testDB)
}

func floatPtr(v float64) *float64 { return &v }

// newTestEvent 單一區域、單一階段的活動
func newTestEvent(slug string, published bool) *model.Event {
	return &model.Event{
		Slug:                  slug,
		Name:                  "Evento " + slug,
		Currency:              "PEN",
		IsPublished:           published,
		SellTicketsOnPlatform: true,
		Zones: []model.Zone{
			{ID: "general", Name: "General", Capacity: 200, IsActive: true},
		},
		SalesPhases: []model.SalesPhase{
			{
				ID:        "preventa",
				Name:      "Preventa",
				StartDate: "2025-01-01",
				EndDate:   "2025-12-31",
				ZonesPricing: []model.ZonePricing{
					{ZoneID: "general", Price: floatPtr(80), Available: 200},
				},
			},
		},
	}
}

// createTestEvent 直接寫入活動
func createTestEvent(t *testing.T, slug string, published bool) *model.Event {
	t.Helper()
	event, err := newEventRepository().Create(context.Background(), newTestEvent(slug, published))
	if err != nil {
		t.Fatalf("Failed to create test event: %v", err)
	}
	return event
}

func newTestOrder(eventID, reference string) *model.Order {
	return &model.Order{
		ID:        uuid.NewString(),
		Reference: reference,
		EventID:   eventID,
		PhaseID:   "preventa",
		Lines: []model.OrderLine{
			{ZoneID: "general", ZoneName: "General", Quantity: 2, UnitPrice: 80, Subtotal: 160},
		},
		TotalAmount:   160,
		Currency:      "PEN",
		PaymentMethod: model.PaymentMethodOnline,
		PaymentType:   model.PaymentTypeFull,
		Customer:      model.Customer{Name: "Ana", Email: "ana@example.com"},
		Status:        model.OrderStatusPending,
	}
}

// createTestOrder 在獨立交易內建立並提交訂單
func createTestOrder(t *testing.T, eventID, reference string) *model.Order {
	t.Helper()
	ctx := context.Background()

	tx, err := testDB.Begin(ctx)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	order, err := newOrderRepository().Create(ctx, tx, newTestOrder(eventID, reference))
	if err != nil {
		t.Fatalf("Failed to create test order: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Failed to commit test order: %v", err)
	}
	return order
}
