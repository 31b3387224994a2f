package service_test

import (
	"errors"
	"testing"

	"go-gin-event-commerce/config"
	currencyMocks "go-gin-event-commerce/internal/currency/mocks"
	"go-gin-event-commerce/internal/jsonld"
	"go-gin-event-commerce/internal/model"
	repoMocks "go-gin-event-commerce/internal/repository/mocks"
	"go-gin-event-commerce/internal/service"
	apperrors "go-gin-event-commerce/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupCatalogService() (service.CatalogService, *repoMocks.EventRepositoryMock, *currencyMocks.ConverterMock) {
	repo := repoMocks.NewEventRepositoryMock()
	converter := currencyMocks.NewConverterMock()
	generator := jsonld.NewGenerator(config.SiteConfig{
		BaseURL:  "https://tickets.example.pe/",
		Name:     "Eventos Lima",
		Language: "es-PE",
	})
	return service.NewCatalogService(repo, generator, converter, clock), repo, converter
}

func TestCatalogService_GetPublished(t *testing.T) {
	t.Run("Unpublished events are hidden", func(t *testing.T) {
		svc, repo, _ := setupCatalogService()
		event := newEvent()
		event.IsPublished = false
		repo.On("FindBySlug", mock.Anything, "festival-verano").Return(event, nil).Once()

		_, err := svc.GetPublished(ctx(), "festival-verano")

		assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	})

	t.Run("ListPublished only asks for published events", func(t *testing.T) {
		svc, repo, _ := setupCatalogService()
		repo.On("List", mock.Anything, model.EventFilter{PublishedOnly: true, Limit: 20, Offset: 40}).
			Return([]*model.Event{newEvent()}, nil).Once()

		events, err := svc.ListPublished(ctx(), 20, 40)

		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, model.PhaseStatusActive, events[0].SalesPhases[0].Status)
		repo.AssertExpectations(t)
	})
}

func TestCatalogService_Pricing(t *testing.T) {
	t.Run("Original currency", func(t *testing.T) {
		svc, repo, converter := setupCatalogService()
		repo.On("FindBySlug", mock.Anything, "festival-verano").Return(newEvent(), nil).Once()

		view, err := svc.Pricing(ctx(), "festival-verano", "pen")

		require.NoError(t, err)
		assert.Equal(t, "PEN", view.Currency)
		require.NotNil(t, view.Cheapest)
		assert.Equal(t, 135.0, view.Cheapest.Price)
		assert.Nil(t, view.Cheapest.DisplayPrice)
		assert.Equal(t, 100, view.TotalAvailable)
		converter.AssertNotCalled(t, "Rate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Converted display price", func(t *testing.T) {
		svc, repo, converter := setupCatalogService()
		repo.On("FindBySlug", mock.Anything, "festival-verano").Return(newEvent(), nil).Once()
		converter.On("Rate", mock.Anything, "PEN", "USD").Return(0.27, nil).Once()

		view, err := svc.Pricing(ctx(), "festival-verano", "usd")

		require.NoError(t, err)
		assert.Equal(t, "USD", view.DisplayCurrency)
		require.NotNil(t, view.Rows[0].DisplayPrice)
		assert.Equal(t, 36.45, *view.Rows[0].DisplayPrice)
		assert.Equal(t, 135.0, view.Rows[0].Price)
	})

	t.Run("Converter failure falls back to event currency", func(t *testing.T) {
		svc, repo, converter := setupCatalogService()
		repo.On("FindBySlug", mock.Anything, "festival-verano").Return(newEvent(), nil).Once()
		converter.On("Rate", mock.Anything, "PEN", "EUR").Return(0.0, errors.New("rates unavailable")).Once()

		view, err := svc.Pricing(ctx(), "festival-verano", "EUR")

		require.NoError(t, err)
		assert.Empty(t, view.DisplayCurrency)
		assert.Nil(t, view.Rows[0].DisplayPrice)
	})
}

func TestCatalogService_JSONLD(t *testing.T) {
	t.Run("Event graph", func(t *testing.T) {
		svc, repo, _ := setupCatalogService()
		repo.On("FindBySlug", mock.Anything, "festival-verano").Return(newEvent(), nil).Once()

		graph, err := svc.EventJSONLD(ctx(), "festival-verano")

		require.NoError(t, err)
		assert.Equal(t, jsonld.SchemaContext, graph.Context)
		assert.NotEmpty(t, graph.Graph)
	})

	t.Run("Event documents for an unknown slug", func(t *testing.T) {
		svc, repo, _ := setupCatalogService()
		repo.On("FindBySlug", mock.Anything, "nope").Return(nil, apperrors.ErrEventNotFound).Once()

		_, err := svc.EventDocuments(ctx(), "nope")

		assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	})

	t.Run("Site graph", func(t *testing.T) {
		svc, _, _ := setupCatalogService()

		graph := svc.SiteJSONLD()

		assert.Len(t, graph.Graph, 2)
	})

	t.Run("Event list graph", func(t *testing.T) {
		svc, repo, _ := setupCatalogService()
		repo.On("List", mock.Anything, model.EventFilter{PublishedOnly: true}).
			Return([]*model.Event{newEvent()}, nil).Once()

		graph, err := svc.EventListJSONLD(ctx())

		require.NoError(t, err)
		require.Len(t, graph.Graph, 3)
		list, ok := graph.Graph[2].(*jsonld.ItemList)
		require.True(t, ok)
		assert.Equal(t, 1, list.NumberOfItems)
		assert.Equal(t, "https://tickets.example.pe/eventos/festival-verano", list.ItemListElement[0].URL)
	})
}
