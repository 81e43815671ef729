package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"coach-llm/internal/service"
)

// ProgressHandler expone el marcado y consulta de avance del usuario.
type ProgressHandler struct {
	progress *service.ProgressService
}

func NewProgressHandler(progress *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progress: progress}
}

// Complete maneja POST /api/progress/:chapterId.
func (h *ProgressHandler) Complete(c *gin.Context) {
	claims, _ := GetAuthClaims(c)
	entry, err := h.progress.SetCompleted(c.Request.Context(), claims.UserID, c.Param("chapterId"), true)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Uncomplete maneja DELETE /api/progress/:chapterId.
func (h *ProgressHandler) Uncomplete(c *gin.Context) {
	claims, _ := GetAuthClaims(c)
	entry, err := h.progress.SetCompleted(c.Request.Context(), claims.UserID, c.Param("chapterId"), false)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// List maneja GET /api/progress.
func (h *ProgressHandler) List(c *gin.Context) {
	claims, _ := GetAuthClaims(c)
	items, err := h.progress.ListByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Summary maneja GET /api/progress/summary.
func (h *ProgressHandler) Summary(c *gin.Context) {
	claims, _ := GetAuthClaims(c)
	summary, err := h.progress.Summary(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
