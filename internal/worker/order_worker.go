package worker

import (
	"context"
	"errors"
	"sync"

	"go-gin-event-commerce/internal/model"
	"go-gin-event-commerce/internal/queue"
	apperrors "go-gin-event-commerce/pkg/app_errors"
	"go-gin-event-commerce/pkg/logger"

	"go.uber.org/zap"
)

// OrderDispatcher 將已保留庫存的訂單寫入資料庫
type OrderDispatcher interface {
	DispatchOrder(ctx context.Context, order *model.Order) error
}

type OrderWorker interface {
	// 訂閱訂單佇列並開始處理，ctx 結束時停止
	Start(ctx context.Context) error
	// 等待處理中的訂單完成
	Wait()
}

type OrderWorkerImpl struct {
	dispatcher OrderDispatcher
	queue      queue.OrderQueue
	workers    int
	wg         sync.WaitGroup
	log        *zap.Logger
}

func NewOrderWorker(dispatcher OrderDispatcher, queue queue.OrderQueue, workers int) OrderWorker {
	if workers <= 0 {
		workers = 1
	}
	return &OrderWorkerImpl{
		dispatcher: dispatcher,
		queue:      queue,
		workers:    workers,
		log:        logger.WithComponent("worker"),
	}
}

func (w *OrderWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.SubscribeOrders(ctx)
	if err != nil {
		return err
	}

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for msg := range msgs {
				w.handle(ctx, msg)
			}
		}()
	}
	return nil
}

func (w *OrderWorkerImpl) Wait() {
	w.wg.Wait()
}

func (w *OrderWorkerImpl) handle(ctx context.Context, msg queue.Delivery) {
	err := w.dispatcher.DispatchOrder(ctx, msg.Data)
	switch {
	case err == nil:
		msg.Ack()
	case isPermanent(err):
		// 重試也不會成功，直接丟棄
		w.log.Warn("dispatch order rejected",
			zap.String("reference", msg.Data.Reference), zap.Error(err))
		msg.Nack(false)
	default:
		// 資料庫暫時無法連線等情況，稍後重試
		w.log.Error("dispatch order failed, will retry",
			zap.String("reference", msg.Data.Reference), zap.Error(err))
		msg.Nack(true)
	}
}

func isPermanent(err error) bool {
	return errors.Is(err, apperrors.ErrEventNotFound) ||
		errors.Is(err, apperrors.ErrZoneNotFound) ||
		errors.Is(err, apperrors.ErrInvalidInput)
}
