package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coach-llm/internal/service"
)

// ContentHandler expone la biblioteca de contenido para lectura, la búsqueda
// semántica y los links compartidos.
type ContentHandler struct {
	logger  *zap.Logger
	content *service.ContentService
	shares  *service.ShareService
}

func NewContentHandler(logger *zap.Logger, content *service.ContentService, shares *service.ShareService) *ContentHandler {
	return &ContentHandler{logger: logger, content: content, shares: shares}
}

// ListCategories maneja GET /api/categories.
func (h *ContentHandler) ListCategories(c *gin.Context) {
	categories, err := h.content.ListCategories(c.Request.Context())
	if err != nil {
		h.logger.Error("list categories failed", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// ListChapters maneja GET /api/chapters.
func (h *ContentHandler) ListChapters(c *gin.Context) {
	chapters, err := h.content.ListChapters(c.Request.Context())
	if err != nil {
		h.logger.Error("list chapters failed", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chapters)
}

// GetChapter maneja GET /api/chapters/:slug.
func (h *ContentHandler) GetChapter(c *gin.Context) {
	chapter, err := h.content.GetChapterBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chapter)
}

// SearchChapters maneja GET /api/chapters/search?q=...&limit=...
func (h *ContentHandler) SearchChapters(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	chapters, err := h.content.SearchChapters(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chapters)
}

// CreateShareLink maneja POST /api/chapters/:slug/share.
func (h *ContentHandler) CreateShareLink(c *gin.Context) {
	claims, _ := GetAuthClaims(c)
	chapter, err := h.content.GetChapterBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	link, err := h.shares.CreateLink(c.Request.Context(), claims.UserID, chapter.ID, 0)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

// ResolveShareLink maneja GET /api/shared/:token (público, sin auth).
func (h *ContentHandler) ResolveShareLink(c *gin.Context) {
	chapter, err := h.shares.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chapter)
}
