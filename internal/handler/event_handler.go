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

// EventHandler 後台活動管理
type EventHandler struct {
	service service.EventService
}

func NewEventHandler(service service.EventService) *EventHandler {
	return &EventHandler{service: service}
}

// RegisterRoutes router 應已套用 JWT 與 admin 角色檢查
func (h *EventHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("events", h.List)
	router.POST("events", h.Create)
	router.GET("events/:id", h.GetByID)
	router.PUT("events/:id", h.Update)
	router.DELETE("events/:id", h.Delete)
	router.POST("events/:id/open-sale", h.OpenForSale)
}

type AdminEventQuery struct {
	PageQuery
	Published bool `form:"published"`
}

func (h *EventHandler) List(c *gin.Context) {
	var q AdminEventQuery
	if err := BindQuery(c, &q); err != nil {
		return
	}
	events, err := h.service.List(c.Request.Context(), model.EventFilter{
		PublishedOnly: q.Published,
		Limit:         q.limit(),
		Offset:        q.Offset,
	})
	if err != nil {
		h.handleError(c, err, "List")
		return
	}
	handleSuccess(c, events, http.StatusOK)
}

func (h *EventHandler) GetByID(c *gin.Context) {
	event, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err, "GetByID")
		return
	}
	handleSuccess(c, event, http.StatusOK)
}

func (h *EventHandler) Create(c *gin.Context) {
	var event model.Event
	if err := BindJson(c, &event); err != nil {
		return
	}
	created, err := h.service.Create(c.Request.Context(), &event)
	if err != nil {
		h.handleError(c, err, "Create")
		return
	}
	handleSuccess(c, created, http.StatusCreated)
}

func (h *EventHandler) Update(c *gin.Context) {
	var event model.Event
	if err := BindJson(c, &event); err != nil {
		return
	}
	updated, err := h.service.Update(c.Request.Context(), c.Param("id"), &event)
	if err != nil {
		h.handleError(c, err, "Update")
		return
	}
	handleSuccess(c, updated, http.StatusOK)
}

func (h *EventHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err, "Delete")
		return
	}
	handleSuccess(c, nil, http.StatusNoContent)
}

func (h *EventHandler) OpenForSale(c *gin.Context) {
	active, err := h.service.OpenForSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err, "OpenForSale")
		return
	}
	handleSuccess(c, active, http.StatusOK)
}

func (h *EventHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
	case errors.Is(err, apperrors.ErrSlugTaken):
		log.Warn("Slug taken")
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperrors.IsValidationError(err):
		log.Warn("Invalid event")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.IsConflictError(err):
		log.Warn("Event not on sale")
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
