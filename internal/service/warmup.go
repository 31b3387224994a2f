package service

import (
	"context"
	"fmt"

	"go-gin-event-commerce/internal/cache"
	"go-gin-event-commerce/internal/model"
	"go-gin-event-commerce/internal/pricing"
	"go-gin-event-commerce/internal/repository"
	apperrors "go-gin-event-commerce/pkg/app_errors"

	"github.com/jackc/pgx/v5"
)

// phasePicker 在已鎖定的活動上選出要預熱的階段
type phasePicker func(event *model.Event) (*model.SalesPhase, error)

// inventoryWarmer 預熱期間持有活動列鎖，出票交易無法在讀取 available 與寫入 Redis 之間提交
type inventoryWarmer struct {
	pool      TxBeginner
	repo      repository.EventRepository
	inventory cache.InventoryManager
}

func (w inventoryWarmer) warm(ctx context.Context, eventID string, pick phasePicker) (*model.SalesPhase, error) {
	tx, err := w.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	event, err := w.repo.FindByIDWithLock(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	p, err := pick(event)
	if err != nil {
		return nil, err
	}

	items := inventoryItems(event, p)
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: phase %q has no priced zones", apperrors.ErrZoneNotOnSale, p.ID)
	}
	if err := w.inventory.WarmUp(ctx, event.ID, p.ID, items); err != nil {
		return nil, fmt.Errorf("warm up inventory: %w", err)
	}

	// 只讀交易，提交即釋放鎖
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func inventoryItems(event *model.Event, p *model.SalesPhase) []cache.InventoryItem {
	view := pricing.BuildView(event, p)
	items := make([]cache.InventoryItem, 0, len(view.Rows))
	for _, row := range view.Rows {
		items = append(items, cache.InventoryItem{
			ZoneID: row.ZoneID,
			Stock:  row.Available,
			Price:  row.Price,
			Limit:  row.MaxPerTransaction,
		})
	}
	return items
}
