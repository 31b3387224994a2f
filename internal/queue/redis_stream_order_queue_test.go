package queue_test

import (
	"context"
	"testing"
	"time"

	"go-gin-event-commerce/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisStreamOrderQueue(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		q := newStreamQueue(t, "test-consumer", queue.RedisStreamOrderQueueConfig{})
		require.NotNil(t, q)
	})

	t.Run("existing group is reused", func(t *testing.T) {
		cfg := queue.RedisStreamOrderQueueConfig{StreamKey: "test:purchases:shared-group"}
		first := newStreamQueue(t, "a", cfg)
		second := newStreamQueue(t, "", cfg)
		require.NotNil(t, first)
		require.NotNil(t, second)
	})
}

func TestRedisStreamOrderQueue_Subscribe_deliversPublishedMessage(t *testing.T) {
	ctx := context.Background()
	q := newStreamQueue(t, "deliver-test", queue.RedisStreamOrderQueueConfig{})

	order := newOrder("ref-deliver")
	require.NoError(t, q.PublishOrder(ctx, order))

	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	delCh, err := q.SubscribeOrders(subCtx)
	require.NoError(t, err)

	select {
	case d, ok := <-delCh:
		require.True(t, ok, "應收到一筆")
		require.NotNil(t, d.Data)
		assert.Equal(t, order.ID, d.Data.ID)
		assert.Equal(t, order.Reference, d.Data.Reference)
		assert.Equal(t, order.EventID, d.Data.EventID)
		assert.Equal(t, order.Lines, d.Data.Lines)
		assert.Equal(t, order.TotalAmount, d.Data.TotalAmount)
		assert.Equal(t, order.Status, d.Data.Status)
		d.Ack()
	case <-subCtx.Done():
		t.Fatal("timeout 未收到訊息")
	}
}

func TestRedisStreamOrderQueue_Ack_preventsRedelivery(t *testing.T) {
	ctx := context.Background()
	q := newStreamQueue(t, "ack-test", queue.RedisStreamOrderQueueConfig{
		ClaimMinIdleTime:   200 * time.Millisecond,
		ReadGroupBlockTime: 200 * time.Millisecond,
	})

	order := newOrder("ref-ack")
	require.NoError(t, q.PublishOrder(ctx, order))

	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	delCh, err := q.SubscribeOrders(subCtx)
	require.NoError(t, err)

	select {
	case d, ok := <-delCh:
		require.True(t, ok)
		d.Ack()
	case <-subCtx.Done():
		t.Fatal("timeout 未收到第一筆")
	}

	// 超過 ClaimMinIdleTime 數倍仍不應再收到
	select {
	case d, ok := <-delCh:
		if ok && d.Data != nil && d.Data.Reference == order.Reference {
			t.Fatalf("Ack 後不應再收到同一筆: reference=%s", order.Reference)
		}
	case <-time.After(time.Second):
	}
}

func TestRedisStreamOrderQueue_NackDiscard_preventsRedelivery(t *testing.T) {
	ctx := context.Background()
	q := newStreamQueue(t, "nack-discard-test", queue.RedisStreamOrderQueueConfig{
		ClaimMinIdleTime:   200 * time.Millisecond,
		ReadGroupBlockTime: 200 * time.Millisecond,
	})

	order := newOrder("ref-nack-discard")
	require.NoError(t, q.PublishOrder(ctx, order))

	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	delCh, err := q.SubscribeOrders(subCtx)
	require.NoError(t, err)

	select {
	case d, ok := <-delCh:
		require.True(t, ok)
		assert.Equal(t, order.Reference, d.Data.Reference)
		d.Nack(false)
	case <-subCtx.Done():
		t.Fatal("timeout 未收到第一筆")
	}

	select {
	case d, ok := <-delCh:
		if ok && d.Data != nil && d.Data.Reference == order.Reference {
			t.Fatalf("Nack(false) 後不應再投遞同一筆: reference=%s", order.Reference)
		}
	case <-time.After(time.Second):
	}
}

func TestRedisStreamOrderQueue_NackRequeue_redeliversAfterIdle(t *testing.T) {
	ctx := context.Background()
	q := newStreamQueue(t, "nack-requeue-test", queue.RedisStreamOrderQueueConfig{
		ClaimMinIdleTime:   200 * time.Millisecond,
		ReadGroupBlockTime: 500 * time.Millisecond,
	})

	order := newOrder("ref-requeue")
	require.NoError(t, q.PublishOrder(ctx, order))

	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	delCh, err := q.SubscribeOrders(subCtx)
	require.NoError(t, err)

	select {
	case d, ok := <-delCh:
		require.True(t, ok)
		d.Nack(true)
	case <-subCtx.Done():
		t.Fatal("timeout 未收到第一筆")
	}

	select {
	case d, ok := <-delCh:
		require.True(t, ok, "Nack(requeue) 後應在 ClaimMinIdleTime 後再次投遞")
		assert.Equal(t, order.Reference, d.Data.Reference, "重試應為同一筆")
		d.Ack()
	case <-subCtx.Done():
		t.Fatal("timeout 未收到重試投遞")
	}
}

func TestRedisStreamOrderQueue_poisonMessage_discardedAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	q := newStreamQueue(t, "poison-test", queue.RedisStreamOrderQueueConfig{
		ClaimMinIdleTime:   200 * time.Millisecond,
		MaxRetryCount:      3,
		ReadGroupBlockTime: 200 * time.Millisecond,
	})

	order := newOrder("ref-poison")
	require.NoError(t, q.PublishOrder(ctx, order))

	subCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	delCh, err := q.SubscribeOrders(subCtx)
	require.NoError(t, err)

	// 每次收到都 Nack(requeue)，超過 MaxRetryCount 後不再投遞
	received := 0
	waitNoMore := time.Second
loop:
	for {
		select {
		case d, ok := <-delCh:
			if !ok {
				t.Fatalf("channel 提早關閉，只收到 %d 次", received)
			}
			assert.Equal(t, order.Reference, d.Data.Reference)
			received++
			d.Nack(true)
		case <-time.After(waitNoMore):
			if received >= 1 {
				break loop
			}
			t.Fatalf("timeout 未收到任何一筆")
		case <-subCtx.Done():
			t.Fatalf("test context timeout，只收到 %d 次", received)
		}
	}

	assert.GreaterOrEqual(t, received, 1)
	assert.Less(t, received, 3)
}

func TestRedisStreamOrderQueue_Subscribe_ctxCancel_closesChannel(t *testing.T) {
	q := newStreamQueue(t, "cancel-test", queue.RedisStreamOrderQueueConfig{
		ReadGroupBlockTime: 200 * time.Millisecond,
	})

	subCtx, cancel := context.WithCancel(context.Background())
	delCh, err := q.SubscribeOrders(subCtx)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-delCh:
		assert.False(t, ok, "context 取消後 channel 應關閉")
	case <-time.After(3 * time.Second):
		t.Fatal("channel 未在時限內關閉")
	}
}
