package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"paycollect/internal/domain"
	"paycollect/internal/service"
)

// PaymentHandler handles HTTP requests for payment initiation and verification.
type PaymentHandler struct {
	paymentService        *service.PaymentService
	reconciliationService *service.ReconciliationService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService, reconciliationService *service.ReconciliationService) *PaymentHandler {
	return &PaymentHandler{
		paymentService:        paymentService,
		reconciliationService: reconciliationService,
	}
}

// InitiatePaymentRequest is the HTTP request body for initiating a payment.
// Amount accepts a JSON number or a numeric string.
type InitiatePaymentRequest struct {
	Amount        *decimal.Decimal `json:"amount"`
	Currency      string           `json:"currency"`
	Name          string           `json:"name"`
	Email         string           `json:"email" binding:"omitempty,email"`
	PhoneNumber   string           `json:"phone_number"`
	PaymentMethod string           `json:"payment_method"`
	Project       string           `json:"project"`
}

// PaymentSummary is the payment view returned by verification.
type PaymentSummary struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// InitiatePayment handles POST /api/payment/initiate/
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: string(service.KindValidation), Message: err.Error()})
		return
	}

	if req.Amount == nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: string(service.KindValidation), Message: "amount is required"})
		return
	}

	result, err := h.paymentService.Initiate(c.Request.Context(), service.InitiateRequest{
		Amount:        *req.Amount,
		Currency:      req.Currency,
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.PhoneNumber,
		PaymentMethod: req.PaymentMethod,
		Project:       req.Project,
	})
	if err != nil {
		// Processor rejections pass the processor's status and body through.
		var rejection *service.GatewayRejectionError
		if errors.As(err, &rejection) {
			respondJSON(c, rejection.StatusCode, ErrorResponse{
				Error:   string(service.KindGatewayRejection),
				Details: string(rejection.Body),
			})
			return
		}
		respondError(c, mapErrorToHTTPStatus(err), err, nil)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", result.Body)
}

// VerifyPayment handles GET /api/payment/verify/?tx_ref=&transaction_id=
// It is also the page the processor redirects the payer back to.
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	payment, err := h.reconciliationService.Verify(c.Request.Context(), service.VerifyRequest{
		Reference:     c.Query("tx_ref"),
		TransactionID: c.Query("transaction_id"),
	})
	if err != nil {
		h.respondVerifyError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, StatusResponse{
		Status:  statusSuccess,
		Message: "Payment was successful",
		Data:    summarize(payment),
	})
}

func (h *PaymentHandler) respondVerifyError(c *gin.Context, err error) {
	var (
		rejection *service.GatewayRejectionError
		failed    *service.VerificationFailedError
	)

	code := mapErrorToHTTPStatus(err)
	switch {
	case errors.Is(err, service.ErrMissingReference):
		respondStatus(c, code, err, "Missing transaction reference", "")
	case service.KindOf(err) == service.KindNotFound:
		respondStatus(c, code, err, "Transaction not found", "")
	case errors.As(err, &failed):
		respondStatus(c, code, err, "Payment verification failed", failed.Message)
	case errors.As(err, &rejection):
		respondStatus(c, code, err, "Error verifying payment", rejection.Message)
	case service.KindOf(err) == service.KindMalformedUpstream:
		respondStatus(c, code, err, "Invalid response from payment provider", "")
	case service.KindOf(err) == service.KindTransport:
		respondStatus(c, code, err, "Network error during verification", "")
	case service.KindOf(err) == service.KindConflict:
		respondStatus(c, code, err, "Payment verification already in progress", "")
	default:
		respondStatus(c, http.StatusInternalServerError, err, "Internal server error", "")
	}
}

func summarize(p *domain.Payment) PaymentSummary {
	return PaymentSummary{
		Amount:   p.Amount.StringFixed(2),
		Currency: p.Currency,
		Name:     p.Contact.Name,
		Email:    p.Contact.Email,
	}
}
