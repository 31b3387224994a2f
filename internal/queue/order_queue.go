package queue

import (
	"context"

	"go-gin-event-commerce/internal/model"
	"go-gin-event-commerce/pkg/logger"

	"go.uber.org/zap"
)

// Delivery 交給 worker 的單筆待出票訂單
type Delivery struct {
	Data *model.Order
	Ack  func()
	Nack func(requeue bool)
}

type OrderQueue interface {
	// 發送已保留庫存的訂單
	PublishOrder(ctx context.Context, order *model.Order) error
	// 訂閱待出票訂單，ctx 結束時關閉 channel
	SubscribeOrders(ctx context.Context) (<-chan Delivery, error)
}

// MemoryOrderQueue 單一程序內使用的 channel 佇列，重啟後未處理的訂單會遺失
type MemoryOrderQueue struct {
	ch chan *model.Order
}

func NewOrderQueue(bufferSize int) OrderQueue {
	return &MemoryOrderQueue{
		ch: make(chan *model.Order, bufferSize),
	}
}

// PublishOrder 佇列滿時等待，直到 ctx 結束
func (q *MemoryOrderQueue) PublishOrder(ctx context.Context, order *model.Order) error {
	select {
	case q.ch <- order:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryOrderQueue) SubscribeOrders(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case order := <-q.ch:
				select {
				case out <- q.newDelivery(ctx, order):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (q *MemoryOrderQueue) newDelivery(ctx context.Context, order *model.Order) Delivery {
	return Delivery{
		Data: order,
		Ack:  func() {},
		Nack: func(requeue bool) {
			if !requeue {
				logger.WithComponent("mq").Warn("order discarded", zap.String("reference", order.Reference))
				return
			}
			// 另開 goroutine 放回，避免 worker 在佇列已滿時卡住
			go func() {
				if err := q.PublishOrder(ctx, order); err != nil {
					logger.WithComponent("mq").Error("requeue order failed",
						zap.String("reference", order.Reference), zap.Error(err))
				}
			}()
		},
	}
}
