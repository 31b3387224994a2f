package service

import (
	"context"
	"strings"

	"go-gin-event-commerce/internal/currency"
	"go-gin-event-commerce/internal/jsonld"
	"go-gin-event-commerce/internal/model"
	"go-gin-event-commerce/internal/phase"
	"go-gin-event-commerce/internal/pricing"
	"go-gin-event-commerce/internal/repository"
	apperrors "go-gin-event-commerce/pkg/app_errors"
	"go-gin-event-commerce/pkg/logger"

	"go.uber.org/zap"
)

// CatalogService 公開頁面用的唯讀投影：價格與結構化資料
type CatalogService interface {
	ListPublished(ctx context.Context, limit, offset int) ([]*model.Event, error)
	GetPublished(ctx context.Context, slug string) (*model.Event, error)
	// Pricing 顯示用階段的價格；displayCurrency 無法換算時維持活動幣別
	Pricing(ctx context.Context, slug, displayCurrency string) (*pricing.View, error)
	EventJSONLD(ctx context.Context, slug string) (jsonld.Graph, error)
	EventDocuments(ctx context.Context, slug string) ([]any, error)
	SiteJSONLD() jsonld.Graph
	EventListJSONLD(ctx context.Context) (jsonld.Graph, error)
}

type CatalogServiceImpl struct {
	repo      repository.EventRepository
	generator *jsonld.Generator
	converter currency.Converter
	now       Clock
	log       *zap.Logger
}

func NewCatalogService(
	repo repository.EventRepository,
	generator *jsonld.Generator,
	converter currency.Converter,
	clock Clock,
) CatalogService {
	if clock == nil {
		clock = systemClock
	}
	return &CatalogServiceImpl{
		repo:      repo,
		generator: generator,
		converter: converter,
		now:       clock,
		log:       logger.WithComponent("service"),
	}
}

func (s *CatalogServiceImpl) ListPublished(ctx context.Context, limit, offset int) ([]*model.Event, error) {
	events, err := s.repo.List(ctx, model.EventFilter{PublishedOnly: true, Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	now := s.now()
	for _, e := range events {
		resolveStatuses(e, now)
	}
	return events, nil
}

// GetPublished 未發佈的活動對外視為不存在
func (s *CatalogServiceImpl) GetPublished(ctx context.Context, slug string) (*model.Event, error) {
	event, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !event.IsPublished {
		return nil, apperrors.ErrEventNotFound
	}
	resolveStatuses(event, s.now())
	return event, nil
}

func (s *CatalogServiceImpl) Pricing(ctx context.Context, slug, displayCurrency string) (*pricing.View, error) {
	event, err := s.GetPublished(ctx, slug)
	if err != nil {
		return nil, err
	}

	display, _ := phase.ForEvent(event).DefaultForDisplay(s.now(), event.SalesPhases)
	view := pricing.BuildView(event, display)

	target := strings.ToUpper(strings.TrimSpace(displayCurrency))
	if target == "" || target == view.Currency || s.converter == nil {
		return &view, nil
	}

	rate, err := s.converter.Rate(ctx, view.Currency, target)
	if err != nil {
		// 匯率取得失敗時顯示原幣別
		s.log.Warn("currency conversion failed, showing original currency",
			zap.String("from", view.Currency),
			zap.String("to", target),
			zap.Error(err))
		return &view, nil
	}
	converted := pricing.ConvertView(view, target, rate)
	return &converted, nil
}

func (s *CatalogServiceImpl) EventJSONLD(ctx context.Context, slug string) (jsonld.Graph, error) {
	event, err := s.GetPublished(ctx, slug)
	if err != nil {
		return jsonld.Graph{}, err
	}
	return s.generator.EventGraph(event, s.now()), nil
}

func (s *CatalogServiceImpl) EventDocuments(ctx context.Context, slug string) ([]any, error) {
	event, err := s.GetPublished(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.generator.EventDocuments(event, s.now()), nil
}

func (s *CatalogServiceImpl) SiteJSONLD() jsonld.Graph {
	return s.generator.SiteGraph()
}

func (s *CatalogServiceImpl) EventListJSONLD(ctx context.Context) (jsonld.Graph, error) {
	events, err := s.ListPublished(ctx, 0, 0)
	if err != nil {
		return jsonld.Graph{}, err
	}
	return s.generator.EventListGraph(events), nil
}
