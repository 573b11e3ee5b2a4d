// Package router provides routing module routes registration.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/reviewflow/reviewflow/internal/routing/handler"
	"github.com/reviewflow/reviewflow/internal/routing/service"
)

// RegisterRoutes registers routing admin routes.
func RegisterRoutes(r *gin.Engine, svc service.Service) {
	h := handler.New(svc)

	r.POST("/admin/rules/cache/invalidate", h.InvalidateCache)
}
