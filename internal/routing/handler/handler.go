// Package handler provides the admin endpoint that lets rule-management
// flows force rule cache freshness.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reviewflow/reviewflow/internal/routing/service"
)

// Handler handles HTTP requests for routing admin endpoints.
type Handler struct {
	service service.Service
}

// New creates a new routing handler instance.
func New(svc service.Service) *Handler {
	return &Handler{service: svc}
}

// InvalidateCacheRequest selects which organization's cache to drop; empty
// means all organizations.
type InvalidateCacheRequest struct {
	OrgID string `json:"org_id"`
}

// InvalidateCache handles POST /admin/rules/cache/invalidate requests.
func (h *Handler) InvalidateCache(c *gin.Context) {
	var req InvalidateCacheRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "invalid request body",
			},
		})
		return
	}

	if req.OrgID == "" {
		h.service.InvalidateAllCaches()
	} else {
		h.service.InvalidateCache(req.OrgID)
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
