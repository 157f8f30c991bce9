package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paycollect/internal/gateway"
	"paycollect/internal/service"
)

// maxWebhookBody caps the size of an accepted webhook payload.
const maxWebhookBody = 1 << 20

// WebhookHandler handles processor webhook notifications.
type WebhookHandler struct {
	authenticator         *service.WebhookAuthenticator
	reconciliationService *service.ReconciliationService
	logger                *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(authenticator *service.WebhookAuthenticator, reconciliationService *service.ReconciliationService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		authenticator:         authenticator,
		reconciliationService: reconciliationService,
		logger:                logger,
	}
}

// HandleWebhook handles POST /api/payment/webhook/
// Every authenticated, parseable event is acknowledged with 200, final or not.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	if err := h.authenticator.Authenticate(c.GetHeader(gateway.WebhookHashHeader)); err != nil {
		h.logger.Warn("Webhook authentication failed", zap.String("client_ip", c.ClientIP()), zap.Error(err))
		message := "Invalid verification hash"
		if errors.Is(err, service.ErrMissingWebhookHash) {
			message = "Missing verification hash"
		}
		respondStatus(c, mapErrorToHTTPStatus(err), err, message, "")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		respondStatus(c, http.StatusBadRequest, err, "Invalid JSON payload", "")
		return
	}

	result, err := h.reconciliationService.ProcessWebhook(c.Request.Context(), body)
	if err != nil {
		code := mapErrorToHTTPStatus(err)
		switch {
		case errors.Is(err, service.ErrInvalidWebhookPayload):
			respondStatus(c, code, err, "Invalid JSON payload", "")
		case errors.Is(err, service.ErrMissingReference):
			respondStatus(c, code, err, "Missing transaction reference", "")
		case service.KindOf(err) == service.KindNotFound:
			respondStatus(c, code, err, "Transaction not found", "")
		case service.KindOf(err) == service.KindConflict:
			respondStatus(c, code, err, "Payment update already in progress", "")
		default:
			respondStatus(c, http.StatusInternalServerError, err, "Error updating payment status", "")
		}
		return
	}

	message := fmt.Sprintf("Payment status: %s", result.ReportedStatus)
	if result.ReportedStatus == gateway.TransactionSuccessful {
		message = "Payment processed successfully"
	}
	respondJSON(c, http.StatusOK, StatusResponse{Status: statusSuccess, Message: message})
}
