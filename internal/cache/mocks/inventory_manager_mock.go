package mocks

import (
	"context"

	"go-gin-event-commerce/internal/cache"
	"go-gin-event-commerce/internal/model"

	"github.com/stretchr/testify/mock"
)

type InventoryManagerMock struct {
	mock.Mock
}

func NewInventoryManagerMock() *InventoryManagerMock {
	return &InventoryManagerMock{}
}

func (m *InventoryManagerMock) WarmUp(ctx context.Context, eventID, phaseID string, items []cache.InventoryItem) error {
	args := m.Called(ctx, eventID, phaseID, items)
	return args.Error(0)
}

func (m *InventoryManagerMock) GetInfo(ctx context.Context, eventID, phaseID, zoneID string) (cache.InventoryInfo, error) {
	args := m.Called(ctx, eventID, phaseID, zoneID)
	return args.Get(0).(cache.InventoryInfo), args.Error(1)
}

func (m *InventoryManagerMock) Hold(ctx context.Context, eventID, phaseID string, lines []model.OrderLine) ([]float64, error) {
	args := m.Called(ctx, eventID, phaseID, lines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

func (m *InventoryManagerMock) Release(ctx context.Context, eventID, phaseID string, lines []model.OrderLine) error {
	args := m.Called(ctx, eventID, phaseID, lines)
	return args.Error(0)
}

func (m *InventoryManagerMock) Settle(ctx context.Context, eventID, phaseID string, lines []model.OrderLine) error {
	args := m.Called(ctx, eventID, phaseID, lines)
	return args.Error(0)
}

func (m *InventoryManagerMock) Restock(ctx context.Context, eventID, phaseID string, lines []model.OrderLine) error {
	args := m.Called(ctx, eventID, phaseID, lines)
	return args.Error(0)
}
