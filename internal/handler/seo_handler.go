package handler

import (
	"errors"
	"net/http"

	"go-gin-event-commerce/internal/jsonld"
	"go-gin-event-commerce/internal/service"
	apperrors "go-gin-event-commerce/pkg/app_errors"
	"go-gin-event-commerce/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	contentTypeJSONLD = "application/ld+json; charset=utf-8"
	contentTypeHTML   = "text/html; charset=utf-8"

	FormatGraph     = "graph"
	FormatDocuments = "documents"
	EmbedHTML       = "html"
)

// SEOHandler 輸出 JSON-LD，embed=html 時回傳可直接嵌入的 script 區塊
type SEOHandler struct {
	service service.CatalogService
}

func NewSEOHandler(service service.CatalogService) *SEOHandler {
	return &SEOHandler{service: service}
}

func (h *SEOHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("seo/site", h.Site)
	router.GET("seo/events", h.EventList)
	router.GET("seo/events/:slug", h.Event)
}

type JSONLDQuery struct {
	Format string `form:"format" binding:"omitempty,oneof=graph documents"`
	Embed  string `form:"embed" binding:"omitempty,oneof=html"`
}

func (h *SEOHandler) Site(c *gin.Context) {
	var q JSONLDQuery
	if err := BindQuery(c, &q); err != nil {
		return
	}
	h.render(c, h.service.SiteJSONLD(), q.Embed, "Site")
}

func (h *SEOHandler) EventList(c *gin.Context) {
	var q JSONLDQuery
	if err := BindQuery(c, &q); err != nil {
		return
	}
	graph, err := h.service.EventListJSONLD(c.Request.Context())
	if err != nil {
		h.handleError(c, err, "EventList")
		return
	}
	h.render(c, graph, q.Embed, "EventList")
}

func (h *SEOHandler) Event(c *gin.Context) {
	var q JSONLDQuery
	if err := BindQuery(c, &q); err != nil {
		return
	}
	slug := c.Param("slug")

	if q.Format == FormatDocuments {
		docs, err := h.service.EventDocuments(c.Request.Context(), slug)
		if err != nil {
			h.handleError(c, err, "EventDocuments")
			return
		}
		if q.Embed == EmbedHTML {
			tags, err := jsonld.ScriptTags(docs)
			if err != nil {
				h.handleError(c, err, "EventDocuments")
				return
			}
			c.Data(http.StatusOK, contentTypeHTML, []byte(tags))
			return
		}
		h.render(c, docs, "", "EventDocuments")
		return
	}

	graph, err := h.service.EventJSONLD(c.Request.Context(), slug)
	if err != nil {
		h.handleError(c, err, "Event")
		return
	}
	h.render(c, graph, q.Embed, "Event")
}

// render 經 jsonld.Marshal 去除空值，同樣輸入輸出相同位元組
func (h *SEOHandler) render(c *gin.Context, v any, embed, operation string) {
	if embed == EmbedHTML {
		tag, err := jsonld.ScriptTag(v)
		if err != nil {
			h.handleError(c, err, operation)
			return
		}
		c.Data(http.StatusOK, contentTypeHTML, []byte(tag))
		return
	}
	b, err := jsonld.Marshal(v)
	if err != nil {
		h.handleError(c, err, operation)
		return
	}
	c.Data(http.StatusOK, contentTypeJSONLD, b)
}

func (h *SEOHandler) handleError(c *gin.Context, err error, operation string) {
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
