package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nclexkeys/backend/internal/service"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	webhookService service.WebhookService
	logger         *zap.Logger
}

func NewWebhookHandler(webhookService service.WebhookService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService, logger: logger}
}

// Receive answers 400 for signature or payload problems so the provider
// retries, 404 for unknown payments and 200 with {status} otherwise.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "unreadable body"})
		return
	}

	status, err := h.webhookService.Receive(c.Request.Context(), c.Param("gateway"), body, c.Request.Header)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid signature"})
		case errors.Is(err, service.ErrInvalidPayload):
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid payload"})
		case errors.Is(err, service.ErrGatewayNotFound):
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "unknown gateway"})
		case errors.Is(err, service.ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "payment not found"})
		default:
			h.logger.Error("webhook processing failed", zap.String("gateway", c.Param("gateway")), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "internal error"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}
