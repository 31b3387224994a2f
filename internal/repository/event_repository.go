package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-gin-event-commerce/internal/model"
	apperrors "go-gin-event-commerce/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type EventRepository interface {
	List(ctx context.Context, filter model.EventFilter) ([]*model.Event, error)
	FindByID(ctx context.Context, id string) (*model.Event, error)
	FindBySlug(ctx context.Context, slug string) (*model.Event, error)
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	Update(ctx context.Context, event *model.Event) (*model.Event, error)
	Delete(ctx context.Context, id string) error

	// Transaction methods
	FindByIDWithLock(ctx context.Context, tx pgx.Tx, id string) (*model.Event, error)
	UpdateWithTx(ctx context.Context, tx pgx.Tx, event *model.Event) (*model.Event, error)
}

type EventRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &EventRepositoryImpl{
		pool: pool,
	}
}

// scanEvent 解析 data 文件，時間欄位以資料表為準
func scanEvent(row pgx.Row) (*model.Event, error) {
	var (
		data      []byte
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&data, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}

	var event model.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to decode event document: %w", err)
	}
	event.CreatedAt = model.NewTimestamp(createdAt)
	event.UpdatedAt = model.NewTimestamp(updatedAt)
	return &event, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (r *EventRepositoryImpl) List(ctx context.Context, filter model.EventFilter) ([]*model.Event, error) {
	query := `
		SELECT data, created_at, updated_at
		FROM events
		WHERE ($1 = FALSE OR published = TRUE)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := max(filter.Offset, 0)

	rows, err := r.pool.Query(ctx, query, filter.PublishedOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*model.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func (r *EventRepositoryImpl) FindByID(ctx context.Context, id string) (*model.Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.ErrEventNotFound
	}

	query := `
		SELECT data, created_at, updated_at
		FROM events
		WHERE id = $1
	`
	return scanEvent(r.pool.QueryRow(ctx, query, id))
}

func (r *EventRepositoryImpl) FindBySlug(ctx context.Context, slug string) (*model.Event, error) {
	query := `
		SELECT data, created_at, updated_at
		FROM events
		WHERE slug = $1
	`
	return scanEvent(r.pool.QueryRow(ctx, query, slug))
}

func (r *EventRepositoryImpl) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event document: %w", err)
	}

	query := `
		INSERT INTO events (id, slug, data, published)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	var createdAt, updatedAt time.Time
	err = r.pool.QueryRow(ctx, query, event.ID, event.Slug, data, event.IsPublished).Scan(&createdAt, &updatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	event.CreatedAt = model.NewTimestamp(createdAt)
	event.UpdatedAt = model.NewTimestamp(updatedAt)
	return event, nil
}

func (r *EventRepositoryImpl) Update(ctx context.Context, event *model.Event) (*model.Event, error) {
	return r.update(ctx, r.pool, event)
}

func (r *EventRepositoryImpl) UpdateWithTx(ctx context.Context, tx pgx.Tx, event *model.Event) (*model.Event, error) {
	return r.update(ctx, tx, event)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *EventRepositoryImpl) update(ctx context.Context, q queryRower, event *model.Event) (*model.Event, error) {
	if _, err := uuid.Parse(event.ID); err != nil {
		return nil, apperrors.ErrEventNotFound
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event document: %w", err)
	}

	query := `
		UPDATE events
		SET slug = $1, data = $2, published = $3, updated_at = $4
		WHERE id = $5
		RETURNING created_at, updated_at
	`

	var createdAt, updatedAt time.Time
	err = q.QueryRow(ctx, query, event.Slug, data, event.IsPublished, time.Now().UTC(), event.ID).Scan(&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		if isUniqueViolation(err) {
			return nil, apperrors.ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	event.CreatedAt = model.NewTimestamp(createdAt)
	event.UpdatedAt = model.NewTimestamp(updatedAt)
	return event, nil
}

func (r *EventRepositoryImpl) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.ErrEventNotFound
	}

	result, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}

	return nil
}

// FindByIDWithLock 鎖定活動列，出票時更新各階段的 available / sold
func (r *EventRepositoryImpl) FindByIDWithLock(ctx context.Context, tx pgx.Tx, id string) (*model.Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.ErrEventNotFound
	}

	query := `
		SELECT data, created_at, updated_at
		FROM events
		WHERE id = $1
		FOR UPDATE
	`
	return scanEvent(tx.QueryRow(ctx, query, id))
}
