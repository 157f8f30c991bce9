package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"

	"paycollect/internal/service"
)

const (
	statusSuccess = "success"
	statusFailed  = "failed"
)

// ErrorResponse is the error body of the initiation endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message any    `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// StatusResponse is the body of the verification and webhook endpoints.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// respondError sends an ErrorResponse tagged with the error's kind.
func respondError(c *gin.Context, code int, err error, details any) {
	noticeServerError(c, code, err)
	c.JSON(code, ErrorResponse{Error: string(service.KindOf(err)), Message: err.Error(), Details: details})
}

// respondStatus sends a StatusResponse for a failed request.
func respondStatus(c *gin.Context, code int, err error, message, details string) {
	noticeServerError(c, code, err)
	c.JSON(code, StatusResponse{Status: statusFailed, Message: message, Details: details})
}

// noticeServerError reports 5xx failures on the request's New Relic transaction, if any.
func noticeServerError(c *gin.Context, code int, err error) {
	if code < http.StatusInternalServerError || err == nil {
		return
	}
	_ = c.Error(err)
	if txn := nrgin.Transaction(c); txn != nil {
		txn.NoticeError(err)
	}
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch service.KindOf(err) {
	case service.KindValidation,
		service.KindGatewayRejection,
		service.KindVerificationFailed:
		return http.StatusBadRequest

	case service.KindAuthentication:
		if errors.Is(err, service.ErrMissingWebhookHash) {
			return http.StatusBadRequest
		}
		return http.StatusForbidden

	case service.KindNotFound:
		return http.StatusNotFound

	case service.KindConflict:
		return http.StatusConflict

	// Transport, malformed upstream and anything unclassified.
	default:
		return http.StatusInternalServerError
	}
}
