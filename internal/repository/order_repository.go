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
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository interface {
	List(ctx context.Context, limit, offset int) ([]*model.Order, error)
	FindByID(ctx context.Context, id string) (*model.Order, error)
	FindByReference(ctx context.Context, reference string) (*model.Order, error)
	ListByEventID(ctx context.Context, eventID string) ([]*model.Order, error)

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) (*model.Order, error)
	UpdateStatusWithLock(ctx context.Context, tx pgx.Tx, id string, status model.OrderStatus) (*model.Order, error)
}

type OrderRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &OrderRepositoryImpl{
		pool: pool,
	}
}

const orderColumns = `
	id::text, reference, event_id::text, phase_id, lines, customer,
	total_amount, currency, payment_method, payment_type,
	installments, reservation_fee, per_installment, status,
	created_at, updated_at
`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		order    model.Order
		lines    []byte
		customer []byte
	)
	err := row.Scan(
		&order.ID,
		&order.Reference,
		&order.EventID,
		&order.PhaseID,
		&lines,
		&customer,
		&order.TotalAmount,
		&order.Currency,
		&order.PaymentMethod,
		&order.PaymentType,
		&order.Installments,
		&order.ReservationFee,
		&order.PerInstallment,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(lines, &order.Lines); err != nil {
		return nil, fmt.Errorf("failed to decode order lines: %w", err)
	}
	if err := json.Unmarshal(customer, &order.Customer); err != nil {
		return nil, fmt.Errorf("failed to decode order customer: %w", err)
	}
	return &order, nil
}

func collectOrders(rows pgx.Rows) ([]*model.Order, error) {
	defer rows.Close()

	orders := make([]*model.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// Create reference 已存在時回傳 ErrDuplicateOrderReference，不覆寫原訂單
func (r *OrderRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, order *model.Order) (*model.Order, error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}

	lines, err := json.Marshal(order.Lines)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order lines: %w", err)
	}
	customer, err := json.Marshal(order.Customer)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order customer: %w", err)
	}

	query := `
		INSERT INTO orders (
			id, reference, event_id, phase_id, lines, customer,
			total_amount, currency, payment_method, payment_type,
			installments, reservation_fee, per_installment, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (reference) DO NOTHING
		RETURNING ` + orderColumns

	created, err := scanOrder(tx.QueryRow(ctx, query,
		order.ID, order.Reference, order.EventID, order.PhaseID, lines, customer,
		order.TotalAmount, order.Currency, order.PaymentMethod, order.PaymentType,
		order.Installments, order.ReservationFee, order.PerInstallment, order.Status,
	))
	if err != nil {
		if errors.Is(err, apperrors.ErrOrderNotFound) {
			return nil, apperrors.ErrDuplicateOrderReference
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	created.EventSlug = order.EventSlug
	created.EventName = order.EventName
	return created, nil
}

func (r *OrderRepositoryImpl) List(ctx context.Context, limit, offset int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, max(offset, 0))
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *OrderRepositoryImpl) FindByID(ctx context.Context, id string) (*model.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.ErrOrderNotFound
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1
	`
	return scanOrder(r.pool.QueryRow(ctx, query, id))
}

func (r *OrderRepositoryImpl) FindByReference(ctx context.Context, reference string) (*model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE reference = $1
	`
	return scanOrder(r.pool.QueryRow(ctx, query, reference))
}

func (r *OrderRepositoryImpl) ListByEventID(ctx context.Context, eventID string) ([]*model.Order, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return []*model.Order{}, nil
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE event_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// UpdateStatusWithLock 鎖定訂單列，狀態不允許轉換時回傳 ErrInvalidOrderStatus
func (r *OrderRepositoryImpl) UpdateStatusWithLock(
	ctx context.Context,
	tx pgx.Tx,
	id string,
	status model.OrderStatus,
) (*model.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.ErrOrderNotFound
	}

	var current model.OrderStatus
	err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}

	if !current.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidOrderStatus, current, status)
	}

	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + orderColumns

	order, err := scanOrder(tx.QueryRow(ctx, query, status, time.Now().UTC(), id))
	if err != nil {
		if errors.Is(err, apperrors.ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	return order, nil
}
