// Package router provides ingest module routes registration.
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reviewflow/reviewflow/internal/ingest/handler"
	"github.com/reviewflow/reviewflow/internal/ingest/service"
)

// RegisterRoutes registers the webhook entry point.
func RegisterRoutes(r *gin.Engine, svc service.Service, logger *zap.SugaredLogger) {
	h := handler.New(svc, logger)

	r.POST("/webhook", h.Webhook)
}
