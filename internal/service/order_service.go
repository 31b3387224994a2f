package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"go-gin-event-commerce/config"
	"go-gin-event-commerce/internal/cache"
	"go-gin-event-commerce/internal/model"
	"go-gin-event-commerce/internal/phase"
	"go-gin-event-commerce/internal/pricing"
	"go-gin-event-commerce/internal/publisher"
	"go-gin-event-commerce/internal/queue"
	"go-gin-event-commerce/internal/repository"
	apperrors "go-gin-event-commerce/pkg/app_errors"
	"go-gin-event-commerce/pkg/logger"
	"go-gin-event-commerce/pkg/telemetry"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const defaultAmountTolerance = 0.01

type OrderService interface {
	// 建立訂單 (Redis 保留庫存後送入佇列)
	PrepareOrder(ctx context.Context, req model.PurchaseRequest) (*model.PurchaseResponse, error)
	// 寫入訂單 (由 worker 從佇列取出後呼叫)
	DispatchOrder(ctx context.Context, order *model.Order) error
	OrderList(ctx context.Context, limit, offset int) ([]*model.Order, error)
	ListByEventID(ctx context.Context, eventID string) ([]*model.Order, error)
	GetOrderByID(ctx context.Context, id string) (*model.Order, error)
	GetOrderByReference(ctx context.Context, reference string) (*model.Order, error)
	ConfirmOrder(ctx context.Context, id string) (*model.Order, error)
	CancelOrder(ctx context.Context, id string) (*model.Order, error)
}

type OrderServiceImpl struct {
	pool             TxBeginner
	repository       repository.OrderRepository
	eventRepository  repository.EventRepository
	inventoryManager cache.InventoryManager
	warmer           inventoryWarmer
	references       cache.ReferenceStore
	orderQueue       queue.OrderQueue
	events           publisher.OrderEvents
	cfg              config.PurchaseConfig
	now              Clock
	log              *zap.Logger
}

func NewOrderService(
	pool TxBeginner,
	orderRepository repository.OrderRepository,
	eventRepository repository.EventRepository,
	inventoryManager cache.InventoryManager,
	references cache.ReferenceStore,
	orderQueue queue.OrderQueue,
	events publisher.OrderEvents,
	cfg config.PurchaseConfig,
	clock Clock,
) OrderService {
	if clock == nil {
		clock = systemClock
	}
	if events == nil {
		events = publisher.NoopOrderEvents{}
	}
	if cfg.AmountTolerance <= 0 {
		cfg.AmountTolerance = defaultAmountTolerance
	}
	return &OrderServiceImpl{
		pool:             pool,
		repository:       orderRepository,
		eventRepository:  eventRepository,
		inventoryManager: inventoryManager,
		warmer:           inventoryWarmer{pool: pool, repo: eventRepository, inventory: inventoryManager},
		references:       references,
		orderQueue:       orderQueue,
		events:           events,
		cfg:              cfg,
		now:              clock,
		log:              logger.WithComponent("service"),
	}
}

func (s *OrderServiceImpl) PrepareOrder(ctx context.Context, req model.PurchaseRequest) (*model.PurchaseResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderService.PrepareOrder", attribute.String("event.id", req.EventID))
	resp, err := s.prepareOrder(ctx, req)
	telemetry.EndSpan(span, err)
	return resp, err
}

func (s *OrderServiceImpl) prepareOrder(ctx context.Context, req model.PurchaseRequest) (*model.PurchaseResponse, error) {
	event, err := s.eventRepository.FindByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if !event.IsPublished {
		return nil, apperrors.ErrEventNotFound
	}

	order, err := s.buildOrder(event, req)
	if err != nil {
		return nil, err
	}

	// 1. 冪等鍵：同一 reference 重送時回傳原本的訂單
	existingID, reserved, err := s.references.Reserve(ctx, order.Reference, order.ID)
	if err != nil {
		return nil, fmt.Errorf("reserve order reference: %w", err)
	}
	if !reserved {
		s.log.Info("duplicate purchase reference", zap.String("reference", order.Reference), zap.String("order_id", existingID))
		order.ID = existingID
		return s.response(event, order), nil
	}

	// 2. Redis 原子保留所有明細
	prices, err := s.hold(ctx, order)
	if err != nil {
		s.forgetReference(order.Reference)
		return nil, err
	}
	s.checkPriceDrift(order, prices)

	// 3. 送入佇列；失敗時一定要歸還庫存，使用 context.Background() 確保執行
	if err := s.orderQueue.PublishOrder(ctx, order); err != nil {
		s.log.Error("failed to publish order", zap.String("reference", order.Reference), zap.Error(err))
		if rerr := s.inventoryManager.Release(context.Background(), order.EventID, order.PhaseID, order.Lines); rerr != nil {
			s.log.Error("failed to release held inventory", zap.String("reference", order.Reference), zap.Error(rerr))
		}
		s.forgetReference(order.Reference)
		return nil, apperrors.ErrInternalServerError
	}

	return s.response(event, order), nil
}

// hold 階段換日後的第一筆購買會遇到尚未預熱的 key，預熱後重試一次
func (s *OrderServiceImpl) hold(ctx context.Context, order *model.Order) ([]float64, error) {
	prices, err := s.inventoryManager.Hold(ctx, order.EventID, order.PhaseID, order.Lines)
	if !errors.Is(err, apperrors.ErrZoneNotOnSale) {
		return prices, err
	}

	_, werr := s.warmer.warm(ctx, order.EventID, func(event *model.Event) (*model.SalesPhase, error) {
		p, ok := event.Phase(order.PhaseID)
		if !ok {
			return nil, err
		}
		return p, nil
	})
	if werr != nil {
		s.log.Warn("lazy inventory warm-up failed",
			zap.String("event_id", order.EventID),
			zap.String("phase_id", order.PhaseID),
			zap.Error(werr))
		return nil, err
	}
	s.log.Info("inventory warmed on first purchase",
		zap.String("event_id", order.EventID),
		zap.String("phase_id", order.PhaseID))
	return s.inventoryManager.Hold(ctx, order.EventID, order.PhaseID, order.Lines)
}

// buildOrder 以伺服器端價格重新計算明細、總額與分期
func (s *OrderServiceImpl) buildOrder(event *model.Event, req model.PurchaseRequest) (*model.Order, error) {
	if !event.SellTicketsOnPlatform {
		return nil, fmt.Errorf("%w: event does not sell tickets on platform", apperrors.ErrZoneNotOnSale)
	}
	if !strings.EqualFold(strings.TrimSpace(req.Currency), event.Currency) {
		return nil, fmt.Errorf("%w: got %q, event uses %q", apperrors.ErrCurrencyMismatch, req.Currency, event.Currency)
	}
	if !req.PaymentMethod.IsValid() {
		return nil, fmt.Errorf("%w: payment method %q", apperrors.ErrInvalidInput, req.PaymentMethod)
	}
	if !req.PaymentMethod.IsOnline() && !event.AllowOfflinePayments {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrPaymentMethodNotAllowed, req.PaymentMethod)
	}
	if !req.PaymentType.IsValid() {
		return nil, fmt.Errorf("%w: payment type %q", apperrors.ErrInvalidInput, req.PaymentType)
	}

	now := s.now()
	active, ok := phase.ForEvent(event).ActiveForPurchase(now, event.SalesPhases)
	if !ok {
		return nil, apperrors.ErrNoActivePhase
	}

	view := pricing.BuildView(event, active)
	lines, err := pricing.ValidateSelection(view, req.Tickets)
	if err != nil {
		return nil, err
	}
	totals := pricing.LineTotals(lines)
	if math.Abs(req.TotalAmount-totals.Amount) > s.cfg.AmountTolerance {
		return nil, fmt.Errorf("%w: got %.2f, expected %.2f", apperrors.ErrTotalMismatch, req.TotalAmount, totals.Amount)
	}

	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = uuid.NewString()
	}

	order := &model.Order{
		ID:            uuid.NewString(),
		Reference:     reference,
		EventID:       event.ID,
		EventSlug:     event.Slug,
		EventName:     event.Name,
		PhaseID:       active.ID,
		Lines:         lines,
		TotalAmount:   totals.Amount,
		Currency:      event.Currency,
		PaymentMethod: req.PaymentMethod,
		PaymentType:   req.PaymentType,
		Customer:      req.Customer,
		Status:        model.OrderStatusPending,
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}

	if req.PaymentType == model.PaymentTypeInstallments {
		limit := event.InstallmentLimit(pricing.MaxInstallments)
		if limit == 0 {
			return nil, apperrors.ErrInstallmentsNotAllowed
		}
		if req.Installments == nil || *req.Installments > limit {
			return nil, fmt.Errorf("%w: allowed 1..%d", apperrors.ErrInvalidInstallments, limit)
		}
		plan, err := pricing.SplitInstallments(totals.Amount, totals.Tickets, *req.Installments)
		if err != nil {
			return nil, err
		}
		order.Installments = plan.Installments
		order.ReservationFee = pricing.Round2(plan.TotalReservation)
		order.PerInstallment = pricing.Round2(plan.PerInstallment)
	}
	return order, nil
}

// checkPriceDrift Redis 預熱後活動價格又被修改時記錄警告，仍以活動文件價格為準
func (s *OrderServiceImpl) checkPriceDrift(order *model.Order, prices []float64) {
	for i, line := range order.Lines {
		if i >= len(prices) {
			return
		}
		if math.Abs(prices[i]-line.UnitPrice) > s.cfg.AmountTolerance {
			s.log.Warn("held inventory price differs from event price",
				zap.String("event_id", order.EventID),
				zap.String("zone_id", line.ZoneID),
				zap.Float64("held_price", prices[i]),
				zap.Float64("event_price", line.UnitPrice))
		}
	}
}

func (s *OrderServiceImpl) forgetReference(reference string) {
	if err := s.references.Forget(context.Background(), reference); err != nil {
		s.log.Warn("failed to forget order reference", zap.String("reference", reference), zap.Error(err))
	}
}

// response 線上付款帶 paymentUrl，其餘改由 WhatsApp 人工確認
func (s *OrderServiceImpl) response(event *model.Event, order *model.Order) *model.PurchaseResponse {
	resp := &model.PurchaseResponse{OK: true, OrderID: order.ID}
	if order.PaymentMethod.IsOnline() {
		resp.PaymentURL = paymentURL(s.cfg.PaymentURLBase, order.ID)
	}
	if resp.PaymentURL == "" {
		number := event.WhatsAppNumber
		if number == "" {
			number = s.cfg.WhatsAppNumber
		}
		resp.WhatsAppURL = WhatsAppURL(number, OrderSummary(order))
	}
	return resp
}

func paymentURL(base, orderID string) string {
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("order", orderID)
	u.RawQuery = q.Encode()
	return u.String()
}

// WhatsAppURL https://wa.me/{number}?text={summary}；號碼只保留數字
func WhatsAppURL(number, text string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if digits == "" {
		return ""
	}
	// wa.me 不接受 + 號代表空白
	return "https://wa.me/" + digits + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

// OrderSummary WhatsApp 訊息內容
func OrderSummary(order *model.Order) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hola, quiero confirmar mi compra para %s\n", order.EventName)
	fmt.Fprintf(&sb, "Pedido: %s\n", order.Reference)
	if order.Customer.Name != "" {
		fmt.Fprintf(&sb, "Nombre: %s\n", order.Customer.Name)
	}
	for _, l := range order.Lines {
		fmt.Fprintf(&sb, "- %d x %s: %.2f %s\n", l.Quantity, l.ZoneName, l.Subtotal, order.Currency)
	}
	fmt.Fprintf(&sb, "Total: %.2f %s\n", order.TotalAmount, order.Currency)
	if order.PaymentType == model.PaymentTypeInstallments {
		fmt.Fprintf(&sb, "Reserva: %.2f %s + %d cuotas de %.2f %s\n",
			order.ReservationFee, order.Currency, order.Installments, order.PerInstallment, order.Currency)
	}
	fmt.Fprintf(&sb, "Pago: %s", order.PaymentMethod)
	return sb.String()
}

func (s *OrderServiceImpl) DispatchOrder(ctx context.Context, order *model.Order) error {
	ctx, span := telemetry.StartSpan(ctx, "OrderService.DispatchOrder", attribute.String("order.reference", order.Reference))
	err := s.dispatchOrder(ctx, order)
	telemetry.EndSpan(span, err)
	return err
}

func (s *OrderServiceImpl) dispatchOrder(ctx context.Context, order *model.Order) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// 寫入訂單
	created, err := s.repository.Create(ctx, tx, order)
	if errors.Is(err, apperrors.ErrDuplicateOrderReference) {
		return s.handleDuplicate(ctx, order)
	}
	if err != nil {
		return err
	}

	// 鎖定活動並將張數由 available 移到 sold
	event, err := s.eventRepository.FindByIDWithLock(ctx, tx, created.EventID)
	if err != nil {
		return err
	}
	if err := applySale(event, created.PhaseID, created.Lines, 1); err != nil {
		return err
	}
	if _, err := s.eventRepository.UpdateWithTx(ctx, tx, event); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.invalidateEvent(ctx, event)

	// 張數已計入 available，Redis 不再視為保留中
	if err := s.inventoryManager.Settle(ctx, created.EventID, created.PhaseID, created.Lines); err != nil {
		s.log.Error("failed to settle held inventory", zap.String("order_id", created.ID), zap.Error(err))
	}

	s.publish(ctx, publisher.OrderCreated, created)
	s.log.Info("order dispatched", zap.String("order_id", created.ID), zap.String("reference", created.Reference))
	return nil
}

// handleDuplicate 同一訂單重複投遞時直接結案 (已結清過，不再扣 held)；不同訂單重複使用 reference 時歸還其保留的庫存
func (s *OrderServiceImpl) handleDuplicate(ctx context.Context, order *model.Order) error {
	existing, err := s.repository.FindByReference(ctx, order.Reference)
	if err != nil {
		return err
	}
	if existing.ID == order.ID {
		return nil
	}
	s.log.Warn("order reference already dispatched, releasing duplicate hold",
		zap.String("reference", order.Reference),
		zap.String("existing_order_id", existing.ID))
	return s.inventoryManager.Release(ctx, order.EventID, order.PhaseID, order.Lines)
}

// applySale sign 為 1 時售出，-1 時退回
func applySale(event *model.Event, phaseID string, lines []model.OrderLine, sign int) error {
	p, ok := event.Phase(phaseID)
	if !ok {
		return fmt.Errorf("%w: sales phase %q no longer exists", apperrors.ErrInvalidInput, phaseID)
	}
	for _, line := range lines {
		zp, ok := p.Pricing(line.ZoneID)
		if !ok {
			return fmt.Errorf("%w: zone %q in phase %q", apperrors.ErrZoneNotFound, line.ZoneID, phaseID)
		}
		qty := sign * line.Quantity
		zp.Available = max(zp.Available-qty, 0)
		zp.Sold = max(zp.Sold+qty, 0)
	}
	return nil
}

func (s *OrderServiceImpl) invalidateEvent(ctx context.Context, event *model.Event) {
	if inv, ok := s.eventRepository.(cacheInvalidator); ok {
		inv.Invalidate(ctx, event.ID, event.Slug)
	}
}

// publish 訂單事件發送失敗不影響訂單本身
func (s *OrderServiceImpl) publish(ctx context.Context, eventType string, order *model.Order) {
	if err := s.events.Publish(ctx, publisher.NewOrderEvent(eventType, order, s.now())); err != nil {
		s.log.Warn("failed to publish order event",
			zap.String("type", eventType),
			zap.String("order_id", order.ID),
			zap.Error(err))
	}
}

func (s *OrderServiceImpl) OrderList(ctx context.Context, limit, offset int) ([]*model.Order, error) {
	return s.repository.List(ctx, limit, offset)
}

func (s *OrderServiceImpl) ListByEventID(ctx context.Context, eventID string) ([]*model.Order, error) {
	return s.repository.ListByEventID(ctx, eventID)
}

func (s *OrderServiceImpl) GetOrderByID(ctx context.Context, id string) (*model.Order, error) {
	return s.repository.FindByID(ctx, id)
}

func (s *OrderServiceImpl) GetOrderByReference(ctx context.Context, reference string) (*model.Order, error) {
	return s.repository.FindByReference(ctx, reference)
}

func (s *OrderServiceImpl) ConfirmOrder(ctx context.Context, id string) (*model.Order, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	order, err := s.repository.UpdateStatusWithLock(ctx, tx, id, model.OrderStatusConfirmed)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.publish(ctx, publisher.OrderConfirmed, order)
	return order, nil
}

// CancelOrder 張數退回活動文件，並歸還 Redis 中的庫存
func (s *OrderServiceImpl) CancelOrder(ctx context.Context, id string) (*model.Order, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// 1. update order status
	order, err := s.repository.UpdateStatusWithLock(ctx, tx, id, model.OrderStatusCancelled)
	if err != nil {
		return nil, err
	}

	// 2. return tickets to the phase rows
	event, err := s.eventRepository.FindByIDWithLock(ctx, tx, order.EventID)
	if err != nil {
		return nil, err
	}
	if err := applySale(event, order.PhaseID, order.Lines, -1); err != nil {
		return nil, err
	}
	if _, err := s.eventRepository.UpdateWithTx(ctx, tx, event); err != nil {
		return nil, err
	}

	// 3. commit transaction
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.invalidateEvent(ctx, event)

	if err := s.inventoryManager.Restock(ctx, order.EventID, order.PhaseID, order.Lines); err != nil {
		s.log.Error("failed to restock inventory for cancelled order", zap.String("order_id", order.ID), zap.Error(err))
	}
	s.publish(ctx, publisher.OrderCancelled, order)
	return order, nil
}
