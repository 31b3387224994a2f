package repository

import (
	"context"
	"encoding/json"
	"time"

	"go-gin-event-commerce/internal/model"
	"go-gin-event-commerce/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	eventDetailKeyPrefix = "event:detail:"
	eventSlugKeyPrefix   = "event:slug:"

	eventCacheTTL = 5 * time.Minute
)

// CachedEventRepository 以 Redis 快取 FindByID / FindBySlug，寫入時清除
type CachedEventRepository struct {
	repo  EventRepository
	cache *redis.Client
	log   *zap.Logger
}

func NewCachedEventRepository(repo EventRepository, cache *redis.Client) EventRepository {
	return &CachedEventRepository{
		repo:  repo,
		cache: cache,
		log:   logger.WithComponent("repository"),
	}
}

func (r *CachedEventRepository) List(ctx context.Context, filter model.EventFilter) ([]*model.Event, error) {
	return r.repo.List(ctx, filter)
}

func (r *CachedEventRepository) FindByID(ctx context.Context, id string) (*model.Event, error) {
	if event, ok := r.fromCache(ctx, eventDetailKeyPrefix+id); ok {
		return event, nil
	}

	event, err := r.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, event)
	return event, nil
}

func (r *CachedEventRepository) FindBySlug(ctx context.Context, slug string) (*model.Event, error) {
	if event, ok := r.fromCache(ctx, eventSlugKeyPrefix+slug); ok {
		return event, nil
	}

	event, err := r.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	r.store(ctx, event)
	return event, nil
}

func (r *CachedEventRepository) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	return r.repo.Create(ctx, event)
}

func (r *CachedEventRepository) Update(ctx context.Context, event *model.Event) (*model.Event, error) {
	previous, _ := r.repo.FindByID(ctx, event.ID)

	updated, err := r.repo.Update(ctx, event)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, updated.ID, updated.Slug)
	// slug 變更時舊 slug 的快取也要清掉
	if previous != nil && previous.Slug != updated.Slug {
		r.invalidate(ctx, previous.ID, previous.Slug)
	}
	return updated, nil
}

func (r *CachedEventRepository) Delete(ctx context.Context, id string) error {
	event, err := r.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id, event.Slug)
	return nil
}

func (r *CachedEventRepository) FindByIDWithLock(ctx context.Context, tx pgx.Tx, id string) (*model.Event, error) {
	return r.repo.FindByIDWithLock(ctx, tx, id)
}

// UpdateWithTx 交易尚未提交，先清快取，讀取端會在下次 miss 時重新載入
func (r *CachedEventRepository) UpdateWithTx(ctx context.Context, tx pgx.Tx, event *model.Event) (*model.Event, error) {
	updated, err := r.repo.UpdateWithTx(ctx, tx, event)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, updated.ID, updated.Slug)
	return updated, nil
}

// Invalidate 交易提交後由 service 呼叫
func (r *CachedEventRepository) Invalidate(ctx context.Context, id, slug string) {
	r.invalidate(ctx, id, slug)
}

func (r *CachedEventRepository) fromCache(ctx context.Context, key string) (*model.Event, bool) {
	cached, err := r.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.log.Warn("event cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var event model.Event
	if err := json.Unmarshal(cached, &event); err != nil {
		return nil, false
	}
	return &event, true
}

func (r *CachedEventRepository) store(ctx context.Context, event *model.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	pipe := r.cache.Pipeline()
	pipe.Set(ctx, eventDetailKeyPrefix+event.ID, data, eventCacheTTL)
	pipe.Set(ctx, eventSlugKeyPrefix+event.Slug, data, eventCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Warn("event cache write failed", zap.String("event_id", event.ID), zap.Error(err))
	}
}

func (r *CachedEventRepository) invalidate(ctx context.Context, id, slug string) {
	if err := r.cache.Del(ctx, eventDetailKeyPrefix+id, eventSlugKeyPrefix+slug).Err(); err != nil {
		r.log.Warn("event cache invalidate failed", zap.String("event_id", id), zap.Error(err))
	}
}
