package mocks

import (
	"context"

	"go-gin-event-commerce/internal/publisher"

	"github.com/stretchr/testify/mock"
)

type OrderEventsMock struct {
	mock.Mock
}

func NewOrderEventsMock() *OrderEventsMock {
	return &OrderEventsMock{}
}

func (m *OrderEventsMock) Publish(ctx context.Context, event publisher.OrderEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *OrderEventsMock) Close() {
	m.Called()
}
