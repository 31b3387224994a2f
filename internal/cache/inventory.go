package cache

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"

	"go-gin-event-commerce/internal/model"
	apperrors "go-gin-event-commerce/pkg/app_errors"

	"github.com/redis/go-redis/v9"
)

//go:embed scripts/hold.lua
var holdScriptSource string

//go:embed scripts/warmup.lua
var warmUpScriptSource string

//go:embed scripts/adjust.lua
var adjustScriptSource string

// InventoryInfo 單一 (活動, 階段, 區域) 在 Redis 中的庫存；Held 為尚未寫入資料庫的保留張數
type InventoryInfo struct {
	Stock int
	Held  int
	Price float64
	Limit int
}

// InventoryItem 預熱用的區域資料，Stock 為資料庫中的 available
type InventoryItem struct {
	ZoneID string
	Stock  int
	Price  float64
	Limit  int
}

type InventoryManager interface {
	// 預熱：將階段各區域的可售數量載入 Redis，扣除仍在保留中的張數，可重複執行
	WarmUp(ctx context.Context, eventID, phaseID string, items []InventoryItem) error
	// 獲取：單一區域的庫存資訊
	GetInfo(ctx context.Context, eventID, phaseID, zoneID string) (InventoryInfo, error)
	// 保留：一次扣減所有明細 (Lua 確保原子性)，回傳各明細的單價
	Hold(ctx context.Context, eventID, phaseID string, lines []model.OrderLine) ([]float64, error)
	// 歸還：尚未寫入資料庫的保留加回庫存
	Release(ctx context.Context, eventID, phaseID string, lines []model.OrderLine) error
	// 結清：保留已寫入資料庫，只扣除 held
	Settle(ctx context.Context, eventID, phaseID string, lines []model.OrderLine) error
	// 補回：已售出的張數退回 (取消訂單)
	Restock(ctx context.Context, eventID, phaseID string, lines []model.OrderLine) error
}

type InventoryManagerImpl struct {
	client *redis.Client
	warmUp *redis.Script
	hold   *redis.Script
	adjust *redis.Script
}

func NewInventoryManager(client *redis.Client) InventoryManager {
	return &InventoryManagerImpl{
		client: client,
		warmUp: redis.NewScript(warmUpScriptSource),
		hold:   redis.NewScript(holdScriptSource),
		adjust: redis.NewScript(adjustScriptSource),
	}
}

// 庫存 key，{eventID} 讓同一活動的 key 落在同一個 slot
func (m *InventoryManagerImpl) getInfoKey(eventID, phaseID, zoneID string) string {
	return fmt.Sprintf("inventory:{%s}:%s:%s", eventID, phaseID, zoneID)
}

func (m *InventoryManagerImpl) lineKeys(eventID, phaseID string, lines []model.OrderLine) ([]string, []interface{}) {
	keys := make([]string, len(lines))
	args := make([]interface{}, len(lines))
	for i, line := range lines {
		keys[i] = m.getInfoKey(eventID, phaseID, line.ZoneID)
		args[i] = line.Quantity
	}
	return keys, args
}

func (m *InventoryManagerImpl) WarmUp(ctx context.Context, eventID, phaseID string, items []InventoryItem) error {
	if len(items) == 0 {
		return nil
	}

	keys := make([]string, len(items))
	args := make([]interface{}, 0, len(items)*3)
	for i, item := range items {
		keys[i] = m.getInfoKey(eventID, phaseID, item.ZoneID)
		args = append(args, max(item.Stock, 0), item.Price, item.Limit)
	}
	return m.warmUp.Run(ctx, m.client, keys, args...).Err()
}

func (m *InventoryManagerImpl) GetInfo(ctx context.Context, eventID, phaseID, zoneID string) (InventoryInfo, error) {
	result, err := m.client.HGetAll(ctx, m.getInfoKey(eventID, phaseID, zoneID)).Result()
	if err != nil {
		return InventoryInfo{}, err
	}

	// 檢查 key 是否存在
	if len(result) == 0 {
		return InventoryInfo{}, apperrors.ErrZoneNotOnSale
	}

	stock, err := strconv.Atoi(result["stock"])
	if err != nil {
		return InventoryInfo{}, fmt.Errorf("invalid stock: %v", err)
	}

	price, err := strconv.ParseFloat(result["price"], 64)
	if err != nil {
		return InventoryInfo{}, fmt.Errorf("invalid price: %v", err)
	}

	limit, err := strconv.Atoi(result["limit"])
	if err != nil {
		return InventoryInfo{}, fmt.Errorf("invalid limit: %v", err)
	}

	held := 0
	if raw, ok := result["held"]; ok {
		if held, err = strconv.Atoi(raw); err != nil {
			return InventoryInfo{}, fmt.Errorf("invalid held: %v", err)
		}
	}

	return InventoryInfo{
		Stock: stock,
		Held:  held,
		Price: price,
		Limit: limit,
	}, nil
}

func (m *InventoryManagerImpl) Hold(ctx context.Context, eventID, phaseID string, lines []model.OrderLine) ([]float64, error) {
	if len(lines) == 0 {
		return nil, apperrors.ErrInvalidQuantity
	}

	keys, args := m.lineKeys(eventID, phaseID, lines)
	result, err := m.hold.Run(ctx, m.client, keys, args...).Slice()
	if err != nil {
		return nil, err
	}
	if len(result) < 2 {
		return nil, errors.New("unexpected result")
	}

	code, _ := result[0].(int64) // Redis 數字回傳 int64
	if code != 1 {
		idx, _ := result[1].(int64)
		zoneID := ""
		if idx >= 1 && int(idx) <= len(lines) {
			zoneID = lines[idx-1].ZoneID
		}
		switch code {
		case -1:
			return nil, fmt.Errorf("%w: zone %s", apperrors.ErrInsufficientStock, zoneID)
		case -2:
			return nil, fmt.Errorf("%w: zone %s", apperrors.ErrExceedsMaxPerTransaction, zoneID)
		case -3:
			return nil, fmt.Errorf("%w: zone %s", apperrors.ErrZoneNotOnSale, zoneID)
		default:
			return nil, errors.New("unexpected result")
		}
	}

	prices := make([]float64, 0, len(lines))
	for _, raw := range result[2:] {
		s, _ := raw.(string)
		price, _ := strconv.ParseFloat(s, 64)
		prices = append(prices, price)
	}
	return prices, nil
}

func (m *InventoryManagerImpl) Release(ctx context.Context, eventID, phaseID string, lines []model.OrderLine) error {
	return m.runAdjust(ctx, eventID, phaseID, lines, 1, -1)
}

func (m *InventoryManagerImpl) Settle(ctx context.Context, eventID, phaseID string, lines []model.OrderLine) error {
	return m.runAdjust(ctx, eventID, phaseID, lines, 0, -1)
}

func (m *InventoryManagerImpl) Restock(ctx context.Context, eventID, phaseID string, lines []model.OrderLine) error {
	return m.runAdjust(ctx, eventID, phaseID, lines, 1, 0)
}

func (m *InventoryManagerImpl) runAdjust(ctx context.Context, eventID, phaseID string, lines []model.OrderLine, stockSign, heldSign int) error {
	if len(lines) == 0 {
		return nil
	}

	keys, qty := m.lineKeys(eventID, phaseID, lines)
	args := append([]interface{}{stockSign, heldSign}, qty...)
	return m.adjust.Run(ctx, m.client, keys, args...).Err()
}
