package gateway

import (
	"encoding/json"
	"fmt"
)

const (
	// StatusSuccess is the top-level status of an accepted API call.
	StatusSuccess = "success"
	// TransactionSuccessful is the transaction status of a settled payment.
	TransactionSuccessful = "successful"
	TransactionFailed     = "failed"
	TransactionCancelled  = "cancelled"
)

// VerifyResponse is the verify endpoint body. Every field is optional and must be presence-checked.
type VerifyResponse struct {
	Status  *string          `json:"status"`
	Message *string          `json:"message"`
	Data    *TransactionData `json:"data"`
}

// TransactionData is the nested transaction block of a verify response.
type TransactionData struct {
	TxRef    *string           `json:"tx_ref"`
	Status   *string           `json:"status"`
	Currency *string           `json:"currency"`
	Customer *TransactionPayer `json:"customer"`
}

// TransactionPayer is the customer block of a verified transaction.
type TransactionPayer struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phone_number"`
}

// ParseVerifyResponse decodes a verify body.
func ParseVerifyResponse(body []byte) (*VerifyResponse, error) {
	var resp VerifyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &resp, nil
}

// TopStatus returns the top-level status or "".
func (r *VerifyResponse) TopStatus() string {
	return deref(r.Status)
}

// TransactionStatus returns the nested transaction status or "".
func (r *VerifyResponse) TransactionStatus() string {
	if r.Data == nil {
		return ""
	}
	return deref(r.Data.Status)
}

// MessageText returns the processor message or a placeholder.
func (r *VerifyResponse) MessageText() string {
	if r.Message == nil {
		return "Unknown error"
	}
	return *r.Message
}

// Confirmed reports whether both the call status and the nested transaction status say success.
// A missing field is never success.
func (r *VerifyResponse) Confirmed() bool {
	return r.TopStatus() == StatusSuccess && r.TransactionStatus() == TransactionSuccessful
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
