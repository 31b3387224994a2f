package handler

import (
	"errors"
	"net/http"

	"go-gin-event-commerce/internal/service"
	apperrors "go-gin-event-commerce/pkg/app_errors"
	"go-gin-event-commerce/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CatalogHandler 公開的活動列表、活動頁與價格
type CatalogHandler struct {
	service service.CatalogService
}

func NewCatalogHandler(service service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

func (h *CatalogHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("events", h.List)
	router.GET("events/:slug", h.GetBySlug)
	router.GET("events/:slug/pricing", h.Pricing)
}

type PricingQuery struct {
	Currency string `form:"currency" binding:"omitempty,len=3,alpha"`
}

func (h *CatalogHandler) List(c *gin.Context) {
	var q PageQuery
	if err := BindQuery(c, &q); err != nil {
		return
	}
	events, err := h.service.ListPublished(c.Request.Context(), q.limit(), q.Offset)
	if err != nil {
		h.handleError(c, err, "List")
		return
	}
	handleSuccess(c, events, http.StatusOK)
}

func (h *CatalogHandler) GetBySlug(c *gin.Context) {
	event, err := h.service.GetPublished(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.handleError(c, err, "GetBySlug")
		return
	}
	handleSuccess(c, event, http.StatusOK)
}

func (h *CatalogHandler) Pricing(c *gin.Context) {
	var q PricingQuery
	if err := BindQuery(c, &q); err != nil {
		return
	}
	view, err := h.service.Pricing(c.Request.Context(), c.Param("slug"), q.Currency)
	if err != nil {
		h.handleError(c, err, "Pricing")
		return
	}
	handleSuccess(c, view, http.StatusOK)
}

func (h *CatalogHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
