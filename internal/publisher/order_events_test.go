package publisher_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go-gin-event-commerce/config"
	"go-gin-event-commerce/internal/model"
	"go-gin-event-commerce/internal/publisher"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderEvent(t *testing.T) {
	lima := time.FixedZone("-05:00", -5*3600)
	now := time.Date(2025, 3, 1, 7, 0, 0, 0, lima)
	order := &model.Order{
		ID:            "order-1",
		Reference:     "ref-1",
		EventID:       "evt-1",
		PhaseID:       "preventa",
		Lines:         []model.OrderLine{{ZoneID: "vip", Quantity: 2, UnitPrice: 135, Subtotal: 270}},
		TotalAmount:   270,
		Currency:      "PEN",
		PaymentMethod: model.PaymentMethodTransfer,
		Status:        model.OrderStatusPending,
	}

	event := publisher.NewOrderEvent(publisher.OrderCreated, order, now)

	assert.Equal(t, "order.created", event.Type)
	assert.Equal(t, "order-1", event.OrderID)
	assert.Equal(t, "evt-1", event.EventID)
	assert.Equal(t, order.Lines, event.Lines)
	assert.Equal(t, time.UTC, event.Timestamp.Location())
	assert.True(t, event.Timestamp.Equal(now))

	raw, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"timestamp":"2025-03-01T12:00:00Z"`)
	assert.Contains(t, string(raw), `"paymentMethod":"transfer"`)
}

func TestNew_WithoutBrokersIsNoop(t *testing.T) {
	for _, cfg := range []*config.KafkaConfig{nil, {OrderTopic: "orders.created"}} {
		events, err := publisher.New(context.Background(), cfg)
		require.NoError(t, err)
		assert.IsType(t, publisher.NoopOrderEvents{}, events)
		assert.NoError(t, events.Publish(context.Background(), publisher.OrderEvent{Type: publisher.OrderCreated}))
		events.Close()
	}
}
