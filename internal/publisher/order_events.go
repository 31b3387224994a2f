package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go-gin-event-commerce/config"
	"go-gin-event-commerce/internal/model"
	"go-gin-event-commerce/pkg/logger"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

const (
	OrderCreated   = "order.created"
	OrderConfirmed = "order.confirmed"
	OrderCancelled = "order.cancelled"
)

// OrderEvent 發送到 Kafka 的訂單事件
type OrderEvent struct {
	Type          string              `json:"type"`
	OrderID       string              `json:"orderId"`
	Reference     string              `json:"reference"`
	EventID       string              `json:"eventId"`
	PhaseID       string              `json:"phaseId"`
	Status        model.OrderStatus   `json:"status"`
	Lines         []model.OrderLine   `json:"lines"`
	TotalAmount   float64             `json:"totalAmount"`
	Currency      string              `json:"currency"`
	PaymentMethod model.PaymentMethod `json:"paymentMethod"`
	Timestamp     time.Time           `json:"timestamp"`
}

func NewOrderEvent(eventType string, order *model.Order, now time.Time) OrderEvent {
	return OrderEvent{
		Type:          eventType,
		OrderID:       order.ID,
		Reference:     order.Reference,
		EventID:       order.EventID,
		PhaseID:       order.PhaseID,
		Status:        order.Status,
		Lines:         order.Lines,
		TotalAmount:   order.TotalAmount,
		Currency:      order.Currency,
		PaymentMethod: order.PaymentMethod,
		Timestamp:     now.UTC(),
	}
}

type OrderEvents interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close()
}

// KafkaOrderEvents 以活動 id 作為 key，同一活動的事件保持順序
type KafkaOrderEvents struct {
	client *kgo.Client
	topic  string
	log    *zap.Logger
}

func NewKafkaOrderEvents(ctx context.Context, cfg *config.KafkaConfig) (*KafkaOrderEvents, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.OrderTopic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Kafka: %w", err)
	}

	return &KafkaOrderEvents{
		client: client,
		topic:  cfg.OrderTopic,
		log:    logger.WithComponent("publisher"),
	}, nil
}

func (p *KafkaOrderEvents) Publish(ctx context.Context, event OrderEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.EventID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "type", Value: []byte(event.Type)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s: %w", event.Type, err)
	}

	p.log.Debug("order event published",
		zap.String("type", event.Type),
		zap.String("order_id", event.OrderID))
	return nil
}

func (p *KafkaOrderEvents) Close() {
	p.client.Close()
}

// NoopOrderEvents 未設定 broker 時使用
type NoopOrderEvents struct{}

func (NoopOrderEvents) Publish(context.Context, OrderEvent) error { return nil }
func (NoopOrderEvents) Close()                                    {}

// New 沒有 broker 時回傳 NoopOrderEvents
func New(ctx context.Context, cfg *config.KafkaConfig) (OrderEvents, error) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return NoopOrderEvents{}, nil
	}
	return NewKafkaOrderEvents(ctx, cfg)
}
