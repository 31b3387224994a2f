package handler

import (
	"errors"
	"net/http"

	"go-gin-event-commerce/internal/model"
	"go-gin-event-commerce/internal/service"
	apperrors "go-gin-event-commerce/pkg/app_errors"
	"go-gin-event-commerce/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(service service.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes 公開的購票入口
func (h *OrderHandler) RegisterRoutes(router gin.IRouter) {
	router.POST("purchases", h.Purchase)
}

// RegisterAdminRoutes 後台訂單查詢與狀態變更
func (h *OrderHandler) RegisterAdminRoutes(router gin.IRouter) {
	router.GET("orders", h.GetOrders)
	router.GET("orders/:id", h.GetOrder)
	router.PUT("orders/:id/confirm", h.ConfirmOrder)
	router.PUT("orders/:id/cancel", h.CancelOrder)
}

type OrderListQuery struct {
	PageQuery
	Reference string `form:"reference"`
	EventID   string `form:"eventId"`
}

// Purchase 回應一律為 {ok, paymentUrl?, orderId?, whatsappUrl?, error?}
func (h *OrderHandler) Purchase(c *gin.Context) {
	var req model.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.PurchaseResponse{OK: false, Error: "Invalid request format"})
		return
	}

	resp, err := h.service.PrepareOrder(c.Request.Context(), req)
	if err != nil {
		status, message := h.errorStatus(err, "Purchase")
		c.JSON(status, model.PurchaseResponse{OK: false, Error: message})
		return
	}
	handleSuccess(c, resp, http.StatusCreated)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.service.GetOrderByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err, "GetOrder")
		return
	}
	handleSuccess(c, order, http.StatusOK)
}

// GetOrders ?reference= 查單筆，?eventId= 依活動列出，否則分頁列出全部
func (h *OrderHandler) GetOrders(c *gin.Context) {
	var q OrderListQuery
	if err := BindQuery(c, &q); err != nil {
		return
	}

	switch {
	case q.Reference != "":
		order, err := h.service.GetOrderByReference(c.Request.Context(), q.Reference)
		if err != nil {
			h.handleError(c, err, "GetOrders")
			return
		}
		handleSuccess(c, []*model.Order{order}, http.StatusOK)
	case q.EventID != "":
		orders, err := h.service.ListByEventID(c.Request.Context(), q.EventID)
		if err != nil {
			h.handleError(c, err, "GetOrders")
			return
		}
		handleSuccess(c, orders, http.StatusOK)
	default:
		orders, err := h.service.OrderList(c.Request.Context(), q.limit(), q.Offset)
		if err != nil {
			h.handleError(c, err, "GetOrders")
			return
		}
		handleSuccess(c, orders, http.StatusOK)
	}
}

func (h *OrderHandler) ConfirmOrder(c *gin.Context) {
	order, err := h.service.ConfirmOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err, "ConfirmOrder")
		return
	}
	handleSuccess(c, order, http.StatusOK)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	order, err := h.service.CancelOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err, "CancelOrder")
		return
	}
	handleSuccess(c, order, http.StatusOK)
}

// Helper functions

func (h *OrderHandler) handleError(c *gin.Context, err error, operation string) {
	status, message := h.errorStatus(err, operation)
	c.JSON(status, gin.H{"error": message})
}

func (h *OrderHandler) errorStatus(err error, operation string) (int, string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrOrderNotFound):
		log.Warn("Order not found")
		return http.StatusNotFound, "Order not found"
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		return http.StatusNotFound, "Event not found"
	case errors.Is(err, apperrors.ErrInsufficientStock):
		log.Warn("Insufficient stock")
		return http.StatusConflict, err.Error()
	case errors.Is(err, apperrors.ErrInvalidOrderStatus):
		log.Warn("Invalid order status transition")
		return http.StatusConflict, err.Error()
	case apperrors.IsValidationError(err):
		log.Warn("Invalid purchase")
		return http.StatusBadRequest, err.Error()
	case apperrors.IsConflictError(err):
		log.Warn("Not on sale")
		return http.StatusConflict, err.Error()
	default:
		log.Error("Unexpected error")
		return http.StatusInternalServerError, "Internal server error"
	}
}
