package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-gin-event-commerce/internal/cache"
	"go-gin-event-commerce/internal/jsonld"
	"go-gin-event-commerce/internal/model"
	"go-gin-event-commerce/internal/phase"
	"go-gin-event-commerce/internal/repository"
	apperrors "go-gin-event-commerce/pkg/app_errors"
	"go-gin-event-commerce/pkg/logger"
	"go-gin-event-commerce/pkg/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type EventService interface {
	List(ctx context.Context, filter model.EventFilter) ([]*model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	GetBySlug(ctx context.Context, slug string) (*model.Event, error)
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	Update(ctx context.Context, id string, event *model.Event) (*model.Event, error)
	Delete(ctx context.Context, id string) error
	// OpenForSale 開賣：將目前可購買階段的各區域庫存預熱到 Redis
	OpenForSale(ctx context.Context, id string) (*model.SalesPhase, error)
}

type EventServiceImpl struct {
	repo   repository.EventRepository
	warmer inventoryWarmer
	now    Clock
	log    *zap.Logger
}

func NewEventService(pool TxBeginner, repo repository.EventRepository, inventoryManager cache.InventoryManager, clock Clock) EventService {
	if clock == nil {
		clock = systemClock
	}
	return &EventServiceImpl{
		repo:   repo,
		warmer: inventoryWarmer{pool: pool, repo: repo, inventory: inventoryManager},
		now:    clock,
		log:    logger.WithComponent("service"),
	}
}

func (s *EventServiceImpl) List(ctx context.Context, filter model.EventFilter) ([]*model.Event, error) {
	events, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for _, e := range events {
		resolveStatuses(e, now)
	}
	return events, nil
}

func (s *EventServiceImpl) GetByID(ctx context.Context, id string) (*model.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resolveStatuses(event, s.now())
	return event, nil
}

func (s *EventServiceImpl) GetBySlug(ctx context.Context, slug string) (*model.Event, error) {
	event, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	resolveStatuses(event, s.now())
	return event, nil
}

func (s *EventServiceImpl) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "EventService.Create")
	created, err := s.create(ctx, event)
	telemetry.EndSpan(span, err)
	return created, err
}

func (s *EventServiceImpl) create(ctx context.Context, event *model.Event) (*model.Event, error) {
	event.ID = uuid.NewString()
	if err := s.normalize(event); err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, event)
	if err != nil {
		return nil, err
	}
	s.log.Info("event created", zap.String("event_id", created.ID), zap.String("slug", created.Slug))
	return created, nil
}

func (s *EventServiceImpl) Update(ctx context.Context, id string, event *model.Event) (*model.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "EventService.Update", attribute.String("event.id", id))
	updated, err := s.update(ctx, id, event)
	telemetry.EndSpan(span, err)
	return updated, err
}

func (s *EventServiceImpl) update(ctx context.Context, id string, event *model.Event) (*model.Event, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	event.ID = existing.ID
	event.CreatedAt = existing.CreatedAt
	if err := s.normalize(event); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, event)
}

func (s *EventServiceImpl) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *EventServiceImpl) OpenForSale(ctx context.Context, id string) (*model.SalesPhase, error) {
	ctx, span := telemetry.StartSpan(ctx, "EventService.OpenForSale", attribute.String("event.id", id))
	active, err := s.openForSale(ctx, id)
	telemetry.EndSpan(span, err)
	return active, err
}

func (s *EventServiceImpl) openForSale(ctx context.Context, id string) (*model.SalesPhase, error) {
	active, err := s.warmer.warm(ctx, id, func(event *model.Event) (*model.SalesPhase, error) {
		p, ok := phase.ForEvent(event).ActiveForPurchase(s.now(), event.SalesPhases)
		if !ok {
			return nil, apperrors.ErrNoActivePhase
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event opened for sale",
		zap.String("event_id", id),
		zap.String("phase_id", active.ID))
	return active, nil
}

// normalize 補齊 slug 與各 id，驗證階段後依目前時間寫入 status
func (s *EventServiceImpl) normalize(event *model.Event) error {
	event.Name = strings.TrimSpace(event.Name)
	if event.Name == "" {
		return fmt.Errorf("%w: event name is required", apperrors.ErrInvalidInput)
	}

	event.Slug = jsonld.Slugify(event.Slug)
	if event.Slug == "" {
		event.Slug = jsonld.Slugify(event.Name)
	}
	if event.Slug == "" {
		return fmt.Errorf("%w: event slug is empty", apperrors.ErrInvalidInput)
	}
	event.Currency = strings.ToUpper(strings.TrimSpace(event.Currency))

	for i := range event.Zones {
		if event.Zones[i].ID == "" {
			event.Zones[i].ID = uuid.NewString()
		}
		if event.Zones[i].Capacity < 0 {
			return fmt.Errorf("%w: negative capacity for zone %q", apperrors.ErrInvalidInput, event.Zones[i].ID)
		}
	}
	for i := range event.SalesPhases {
		p := &event.SalesPhases[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		for j := range p.ZonesPricing {
			p.ZonesPricing[j].PhaseID = p.ID
		}
	}

	if err := phase.ForEvent(event).ValidateAll(event.SalesPhases, event.Zones); err != nil {
		return err
	}
	resolveStatuses(event, s.now())
	return nil
}

// resolveStatuses 以目前時間覆寫各階段的 status
func resolveStatuses(event *model.Event, now time.Time) {
	event.SalesPhases = phase.ForEvent(event).Resolve(now, event.SalesPhases)
}
