package mocks

import (
	"context"

	"go-gin-event-commerce/internal/jsonld"
	"go-gin-event-commerce/internal/model"
	"go-gin-event-commerce/internal/pricing"

	"github.com/stretchr/testify/mock"
)

type CatalogServiceMock struct {
	mock.Mock
}

func NewCatalogServiceMock() *CatalogServiceMock {
	return &CatalogServiceMock{}
}

func (m *CatalogServiceMock) ListPublished(ctx context.Context, limit, offset int) ([]*model.Event, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *CatalogServiceMock) GetPublished(ctx context.Context, slug string) (*model.Event, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *CatalogServiceMock) Pricing(ctx context.Context, slug, displayCurrency string) (*pricing.View, error) {
	args := m.Called(ctx, slug, displayCurrency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.View), args.Error(1)
}

func (m *CatalogServiceMock) EventJSONLD(ctx context.Context, slug string) (jsonld.Graph, error) {
	args := m.Called(ctx, slug)
	return args.Get(0).(jsonld.Graph), args.Error(1)
}

func (m *CatalogServiceMock) EventDocuments(ctx context.Context, slug string) ([]any, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]any), args.Error(1)
}

func (m *CatalogServiceMock) SiteJSONLD() jsonld.Graph {
	args := m.Called()
	return args.Get(0).(jsonld.Graph)
}

func (m *CatalogServiceMock) EventListJSONLD(ctx context.Context) (jsonld.Graph, error) {
	args := m.Called(ctx)
	return args.Get(0).(jsonld.Graph), args.Error(1)
}
