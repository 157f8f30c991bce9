package service

import (
	"errors"
	"fmt"

	"paycollect/internal/gateway"
	"paycollect/internal/repository"
)

var (
	// ErrInvalidAmount is returned when the amount is not a positive value with at most two decimals.
	ErrInvalidAmount = errors.New("amount must be a positive number with at most 2 decimal places and 10 digits")

	// ErrInvalidCurrency is returned when the currency code is not 3 to 10 characters.
	ErrInvalidCurrency = errors.New("currency must be 3 to 10 characters")

	// ErrInvalidContact is returned when a contact field exceeds its stored length.
	ErrInvalidContact = errors.New("contact field too long")

	// ErrMissingReference is returned when no transaction reference is supplied.
	ErrMissingReference = errors.New("missing transaction reference")

	// ErrMissingWebhookHash is returned when a webhook carries no verification hash.
	ErrMissingWebhookHash = errors.New("missing verification hash")

	// ErrInvalidWebhookHash is returned when a webhook verification hash does not match.
	ErrInvalidWebhookHash = errors.New("invalid verification hash")

	// ErrInvalidWebhookPayload is returned when a webhook body is not valid JSON.
	ErrInvalidWebhookPayload = errors.New("invalid JSON payload")

	// ErrMalformedResponse is returned when the processor answers with a body that cannot be decoded.
	ErrMalformedResponse = errors.New("invalid response from payment provider")

	// ErrVerificationFailed is returned when the processor does not confirm the payment.
	ErrVerificationFailed = errors.New("payment verification failed")

	// ErrReconcileInProgress is returned when another request holds the payment's reconciliation lock.
	ErrReconcileInProgress = errors.New("payment reconciliation already in progress")
)

// GatewayRejectionError is returned when the processor answers a request with a non-200 status.
type GatewayRejectionError struct {
	StatusCode int
	Body       []byte
	Message    string // Processor message when the body carried one.
}

func (e *GatewayRejectionError) Error() string {
	return fmt.Sprintf("processor rejected request with status %d", e.StatusCode)
}

// VerificationFailedError carries the statuses reported by a verification that did not confirm success.
type VerificationFailedError struct {
	ReportedStatus    string
	TransactionStatus string
	Message           string
}

func (e *VerificationFailedError) Error() string {
	return fmt.Sprintf("payment verification failed: status=%q transaction_status=%q", e.ReportedStatus, e.TransactionStatus)
}

func (e *VerificationFailedError) Unwrap() error {
	return ErrVerificationFailed
}

// ErrorKind classifies an error into the failure taxonomy callers switch on.
type ErrorKind string

const (
	KindValidation         ErrorKind = "Validation Error"
	KindAuthentication     ErrorKind = "Authentication Error"
	KindNotFound           ErrorKind = "Not Found"
	KindGatewayRejection   ErrorKind = "Payment Initiation Failed"
	KindTransport          ErrorKind = "Network Error"
	KindMalformedUpstream  ErrorKind = "Invalid Provider Response"
	KindVerificationFailed ErrorKind = "Verification Failed"
	KindConflict           ErrorKind = "Conflict"
	KindInternal           ErrorKind = "Server Error"
)

// KindOf returns the taxonomy kind of err. Unknown errors are internal.
func KindOf(err error) ErrorKind {
	var (
		rejection *GatewayRejectionError
		transport *gateway.TransportError
	)

	switch {
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidCurrency),
		errors.Is(err, ErrInvalidContact),
		errors.Is(err, ErrMissingReference),
		errors.Is(err, ErrInvalidWebhookPayload):
		return KindValidation

	case errors.Is(err, ErrMissingWebhookHash),
		errors.Is(err, ErrInvalidWebhookHash):
		return KindAuthentication

	case errors.Is(err, repository.ErrNotFound):
		return KindNotFound

	case errors.As(err, &rejection):
		return KindGatewayRejection

	case errors.As(err, &transport):
		return KindTransport

	case errors.Is(err, ErrMalformedResponse),
		errors.Is(err, gateway.ErrMalformedResponse):
		return KindMalformedUpstream

	case errors.Is(err, ErrVerificationFailed):
		return KindVerificationFailed

	case errors.Is(err, ErrReconcileInProgress):
		return KindConflict

	default:
		return KindInternal
	}
}
