package handler

import (
	"errors"
	"net/http"

	"vetline/backend/internal/models"
	"vetline/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// CreateCallback records a leave-a-callback request: the fallback path
// offered when no staff member was available to talk.
func (h *Handler) CreateCallback(c *gin.Context) {
	var cb models.CallbackRequest
	if err := c.ShouldBindJSON(&cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid callback request"})
		return
	}
	if cb.Phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required"})
		return
	}

	if err := h.Storage.SaveCallback(&cb); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save callback"})
		return
	}
	c.JSON(http.StatusCreated, cb)
}

// ListCallbacks returns the open callback queue for staff, oldest first.
func (h *Handler) ListCallbacks(c *gin.Context) {
	callbacks, err := h.Storage.ListOpenCallbacks()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list callbacks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"callbacks": callbacks, "count": len(callbacks)})
}

// MarkCallbackContacted resolves one callback.
func (h *Handler) MarkCallbackContacted(c *gin.Context) {
	id := c.Param("id")
	if err := h.Storage.MarkCallbackContacted(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "callback not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update callback"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "contacted"})
}

// Healthz is the liveness probe.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
