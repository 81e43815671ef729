package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coach-llm/internal/service"
)

// AdminHandler expone el CMS: CRUD de contenido, operaciones bulk, audio,
// embeddings y analytics. Todas las rutas requieren rol admin.
type AdminHandler struct {
	logger    *zap.Logger
	content   *service.ContentService
	audio     *service.AudioService
	analytics *service.AnalyticsService
}

func NewAdminHandler(
	logger *zap.Logger,
	content *service.ContentService,
	audio *service.AudioService,
	analytics *service.AnalyticsService,
) *AdminHandler {
	return &AdminHandler{
		logger:    logger,
		content:   content,
		audio:     audio,
		analytics: analytics,
	}
}

// CreateCategory maneja POST /api/admin/categories.
func (h *AdminHandler) CreateCategory(c *gin.Context) {
	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		SortOrder   int    `json:"sortOrder"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	category, err := h.content.CreateCategory(c.Request.Context(), req.Title, req.Description, req.SortOrder)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// UpdateCategory maneja PUT /api/admin/categories/:id.
func (h *AdminHandler) UpdateCategory(c *gin.Context) {
	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		SortOrder   int    `json:"sortOrder"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	category, err := h.content.UpdateCategory(c.Request.Context(), c.Param("id"), req.Title, req.Description, req.SortOrder)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory maneja DELETE /api/admin/categories/:id.
func (h *AdminHandler) DeleteCategory(c *gin.Context) {
	if err := h.content.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// CreateChapter maneja POST /api/admin/chapters.
func (h *AdminHandler) CreateChapter(c *gin.Context) {
	var req struct {
		CategoryID string `json:"categoryId" binding:"required"`
		Title      string `json:"title" binding:"required"`
		Content    string `json:"content"`
		SortOrder  int    `json:"sortOrder"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	chapter, err := h.content.CreateChapter(c.Request.Context(), req.CategoryID, req.Title, req.Content, req.SortOrder)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, chapter)
}

// UpdateChapter maneja PUT /api/admin/chapters/:id con campos parciales en
// camelCase que se traducen a columnas con la tabla de mapeo.
func (h *AdminHandler) UpdateChapter(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	chapter, err := h.content.UpdateChapterFields(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chapter)
}

// DeleteChapter maneja DELETE /api/admin/chapters/:id.
func (h *AdminHandler) DeleteChapter(c *gin.Context) {
	if err := h.content.DeleteChapter(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ReorderChapters maneja POST /api/admin/chapters/reorder.
func (h *AdminHandler) ReorderChapters(c *gin.Context) {
	var req struct {
		OrderedIDs []string `json:"orderedIds" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.content.ReorderChapters(c.Request.Context(), req.OrderedIDs); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reordered": len(req.OrderedIDs)})
}

// BulkSetCategory maneja POST /api/admin/chapters/bulk-category.
func (h *AdminHandler) BulkSetCategory(c *gin.Context) {
	var req struct {
		IDs        []string `json:"ids" binding:"required"`
		CategoryID string   `json:"categoryId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.content.BulkSetCategory(c.Request.Context(), req.IDs, req.CategoryID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": len(req.IDs)})
}

// BulkDeleteChapters maneja POST /api/admin/chapters/bulk-delete.
func (h *AdminHandler) BulkDeleteChapters(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.content.BulkDeleteChapters(c.Request.Context(), req.IDs); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": len(req.IDs)})
}

// GenerateAudio maneja POST /api/admin/chapters/:id/audio.
func (h *AdminHandler) GenerateAudio(c *gin.Context) {
	audioURL, err := h.audio.GenerateChapterAudio(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Warn("audio generation failed", zap.Error(err), zap.String("chapter_id", c.Param("id")))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audio_url": audioURL})
}

// RefreshEmbedding maneja POST /api/admin/chapters/:id/embedding.
func (h *AdminHandler) RefreshEmbedding(c *gin.Context) {
	if err := h.content.RefreshEmbedding(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": true})
}

// AnalyticsOverview maneja GET /api/admin/analytics/overview.
func (h *AdminHandler) AnalyticsOverview(c *gin.Context) {
	overview, err := h.analytics.Overview(c.Request.Context())
	if err != nil {
		h.logger.Error("analytics overview failed", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}
