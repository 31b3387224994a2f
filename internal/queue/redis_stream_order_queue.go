package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-gin-event-commerce/internal/model"
	"go-gin-event-commerce/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	StreamKey          = "purchases:stream"
	ConsumerGroupName  = "order-dispatchers"
	ConsumerNamePrefix = "dispatcher"

	payloadField   = "order"
	referenceField = "reference"
)

// RedisStreamOrderQueueConfig 零值欄位使用預設值
type RedisStreamOrderQueueConfig struct {
	StreamKey          string
	ClaimMinIdleTime   time.Duration // PEL 中超過此時間才被 XAUTOCLAIM 領取
	MaxRetryCount      int           // 超過此次數視為毒藥消息並丟棄
	ReadGroupBlockTime time.Duration
	BatchSize          int64
}

func (c RedisStreamOrderQueueConfig) withDefaults() RedisStreamOrderQueueConfig {
	if c.StreamKey == "" {
		c.StreamKey = StreamKey
	}
	if c.ClaimMinIdleTime <= 0 {
		c.ClaimMinIdleTime = 5 * time.Second
	}
	if c.MaxRetryCount <= 0 {
		c.MaxRetryCount = 5
	}
	if c.ReadGroupBlockTime <= 0 {
		c.ReadGroupBlockTime = 2 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	return c
}

type RedisStreamOrderQueue struct {
	client       *redis.Client
	groupName    string
	consumerName string
	cfg          RedisStreamOrderQueueConfig
	log          *zap.Logger
}

// NewRedisStreamOrderQueue consumerID 為空時產生隨機 id，同一 group 內各 consumer 分攤訊息
func NewRedisStreamOrderQueue(ctx context.Context, client *redis.Client, consumerID string, cfg RedisStreamOrderQueueConfig) (*RedisStreamOrderQueue, error) {
	if consumerID == "" {
		consumerID = uuid.NewString()
	}
	q := &RedisStreamOrderQueue{
		client:       client,
		groupName:    ConsumerGroupName,
		consumerName: fmt.Sprintf("%s:%s", ConsumerNamePrefix, consumerID),
		cfg:          cfg.withDefaults(),
		log:          logger.WithComponent("mq"),
	}
	if err := q.ensureConsumerGroup(ctx); err != nil {
		return nil, fmt.Errorf("ensure consumer group: %w", err)
	}
	return q, nil
}

func (q *RedisStreamOrderQueue) ensureConsumerGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.cfg.StreamKey, q.groupName, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (q *RedisStreamOrderQueue) PublishOrder(ctx context.Context, order *model.Order) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.cfg.StreamKey,
		ID:     "*",
		Values: map[string]interface{}{
			referenceField: order.Reference,
			payloadField:   string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd: %w", err)
	}
	return nil
}

func (q *RedisStreamOrderQueue) SubscribeOrders(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)
	done := make(chan struct{})

	go func() {
		defer close(done)
		q.runAutoClaim(ctx, out)
	}()
	go func() {
		q.runReadLoop(ctx, out)
		<-done
		close(out)
	}()
	return out, nil
}

// runReadLoop 只讀新訊息 (">")；已投遞但未 ack 的訊息由 XAUTOCLAIM 逾時後領回重試
func (q *RedisStreamOrderQueue) runReadLoop(ctx context.Context, out chan<- Delivery) {
	for ctx.Err() == nil {
		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.groupName,
			Consumer: q.consumerName,
			Streams:  []string{q.cfg.StreamKey, ">"},
			Count:    q.cfg.BatchSize,
			Block:    q.cfg.ReadGroupBlockTime,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.log.Error("XReadGroup failed", zap.Error(err))
			sleep(ctx, time.Second)
			continue
		}

		for _, stream := range streams {
			if !q.deliverAll(ctx, out, stream.Messages, false) {
				return
			}
		}
	}
}

// runAutoClaim 定時領回閒置超過 ClaimMinIdleTime 的訊息
func (q *RedisStreamOrderQueue) runAutoClaim(ctx context.Context, out chan<- Delivery) {
	ticker := time.NewTicker(q.cfg.ClaimMinIdleTime)
	defer ticker.Stop()
	startID := "0-0"

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		claimed, nextID, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   q.cfg.StreamKey,
			Group:    q.groupName,
			Consumer: q.consumerName,
			MinIdle:  q.cfg.ClaimMinIdleTime,
			Count:    q.cfg.BatchSize,
			Start:    startID,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			if ctx.Err() == nil {
				q.log.Error("XAutoClaim failed", zap.Error(err))
			}
			continue
		}
		startID = nextID
		if startID == "" {
			startID = "0-0"
		}

		if !q.deliverAll(ctx, out, claimed, true) {
			return
		}
	}
}

// deliverAll ctx 結束時回傳 false
func (q *RedisStreamOrderQueue) deliverAll(ctx context.Context, out chan<- Delivery, msgs []redis.XMessage, claimed bool) bool {
	for _, msg := range msgs {
		if claimed && q.isPoison(ctx, msg.ID) {
			continue
		}
		d, ok := q.newDelivery(ctx, msg)
		if !ok {
			continue
		}
		select {
		case out <- d:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// isPoison 重試次數達上限時 ack 丟棄
func (q *RedisStreamOrderQueue) isPoison(ctx context.Context, messageID string) bool {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.cfg.StreamKey,
		Group:  q.groupName,
		Start:  messageID,
		End:    messageID,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		if err != nil && !errors.Is(err, redis.Nil) {
			q.log.Warn("XPendingExt failed", zap.String("message_id", messageID), zap.Error(err))
		}
		return false
	}

	retries := int(pending[0].RetryCount)
	if retries < q.cfg.MaxRetryCount {
		return false
	}
	q.log.Warn("discard poison message",
		zap.String("message_id", messageID),
		zap.Int("retries", retries),
		zap.Int("max_retries", q.cfg.MaxRetryCount))
	q.ack(ctx, messageID)
	return true
}

func (q *RedisStreamOrderQueue) ack(ctx context.Context, messageID string) {
	if err := q.client.XAck(ctx, q.cfg.StreamKey, q.groupName, messageID).Err(); err != nil {
		q.log.Error("XAck failed", zap.String("message_id", messageID), zap.Error(err))
	}
}

// newDelivery 無法解析的訊息直接 ack，避免一直被重新領取
func (q *RedisStreamOrderQueue) newDelivery(ctx context.Context, msg redis.XMessage) (Delivery, bool) {
	payload, ok := msg.Values[payloadField].(string)
	if !ok {
		q.log.Warn("invalid message: missing order field", zap.String("message_id", msg.ID))
		q.ack(ctx, msg.ID)
		return Delivery{}, false
	}
	var order model.Order
	if err := json.Unmarshal([]byte(payload), &order); err != nil {
		q.log.Warn("unmarshal order failed", zap.String("message_id", msg.ID), zap.Error(err))
		q.ack(ctx, msg.ID)
		return Delivery{}, false
	}

	msgID := msg.ID
	return Delivery{
		Data: &order,
		Ack:  func() { q.ack(ctx, msgID) },
		Nack: func(requeue bool) {
			if requeue {
				// 留在 PEL，等 ClaimMinIdleTime 後由 XAUTOCLAIM 領取
				q.log.Info("message nack(requeue), will retry",
					zap.String("message_id", msgID),
					zap.Duration("claim_min_idle", q.cfg.ClaimMinIdleTime))
				return
			}
			q.ack(ctx, msgID)
		},
	}, true
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
