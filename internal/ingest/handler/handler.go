// Package handler provides HTTP handlers for the webhook entry point.
package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	ingestModel "github.com/reviewflow/reviewflow/internal/ingest/model"
	"github.com/reviewflow/reviewflow/internal/ingest/service"
)

// maxPayloadBytes bounds webhook request bodies.
const maxPayloadBytes = 1 << 20

// Handler handles HTTP requests for the webhook endpoint.
type Handler struct {
	service service.Service
	logger  *zap.SugaredLogger
}

// New creates a new ingest handler instance.
func New(svc service.Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		service: svc,
		logger:  logger,
	}
}

// Webhook handles POST /webhook requests.
func (h *Handler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, ingestModel.Result{
			Status: ingestModel.StatusRejected,
			Reason: ingestModel.ReasonBadPayload,
		})
		return
	}

	headers := service.Headers{
		DeliveryID: c.GetHeader(service.HeaderDelivery),
		EventType:  c.GetHeader(service.HeaderEvent),
		Signature:  c.GetHeader(service.HeaderSignature),
	}

	result, err := h.service.Ingest(c.Request.Context(), payload, headers)
	if err != nil {
		// Transient failure: the whole request fails and the sender retries;
		// the dedup ledger absorbs the retry.
		h.logger.Errorw("ingest failed",
			"delivery_id", headers.DeliveryID,
			"event_type", headers.EventType,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "internal server error",
			},
		})
		return
	}

	c.JSON(statusCode(result), result)
}

// statusCode maps an ingest result to an HTTP status.
func statusCode(result *ingestModel.Result) int {
	if result.Status != ingestModel.StatusRejected {
		return http.StatusOK
	}
	if result.Reason == ingestModel.ReasonBadSignature {
		return http.StatusUnauthorized
	}
	return http.StatusBadRequest
}
