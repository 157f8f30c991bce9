// Package gateway talks to the hosted-payment processor: charge creation, transaction verification
// and decoding of the processor's responses and webhook payloads.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 1 << 20

// Customer is the payer block of a charge request.
type Customer struct {
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phonenumber,omitempty"`
	Name        string `json:"name,omitempty"`
}

// Customizations controls the hosted checkout page.
type Customizations struct {
	Title string `json:"title,omitempty"`
}

// ChargeRequest is the body sent to the processor's create-payment endpoint.
type ChargeRequest struct {
	TxRef          string         `json:"tx_ref"`
	Amount         string         `json:"amount"`
	Currency       string         `json:"currency"`
	RedirectURL    string         `json:"redirect_url"`
	Customer       Customer       `json:"customer"`
	Customizations Customizations `json:"customizations"`
}

// RawResponse is an upstream HTTP status and body, undecoded.
type RawResponse struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the processor answered 200.
func (r *RawResponse) OK() bool {
	return r.StatusCode == http.StatusOK
}

// Client is an HTTP client for the processor API.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Client. A nil transport uses http.DefaultTransport.
func NewClient(baseURL, secretKey string, timeout time.Duration, transport http.RoundTripper, logger *zap.Logger) *Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: logger,
	}
}

// CreateCharge calls POST /payments.
func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest) (*RawResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode charge request: %w", err)
	}

	c.logger.Info("Sending charge request",
		zap.String("tx_ref", req.TxRef),
		zap.String("amount", req.Amount),
		zap.String("currency", req.Currency))

	return c.do(ctx, "create_charge", http.MethodPost, c.baseURL+"/payments", body)
}

// VerifyByTransactionID calls GET /transactions/{id}/verify.
func (c *Client) VerifyByTransactionID(ctx context.Context, transactionID string) (*RawResponse, error) {
	endpoint := fmt.Sprintf("%s/transactions/%s/verify", c.baseURL, url.PathEscape(transactionID))
	return c.do(ctx, "verify_by_id", http.MethodGet, endpoint, nil)
}

// VerifyByReference calls GET /transactions/verify_by_reference?tx_ref={ref}.
func (c *Client) VerifyByReference(ctx context.Context, reference string) (*RawResponse, error) {
	endpoint := fmt.Sprintf("%s/transactions/verify_by_reference?tx_ref=%s", c.baseURL, url.QueryEscape(reference))
	return c.do(ctx, "verify_by_reference", http.MethodGet, endpoint, nil)
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, body []byte) (*RawResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", op, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("Processor request failed", zap.String("op", op), zap.Error(err))
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	c.logger.Info("Processor response",
		zap.String("op", op),
		zap.Int("status_code", resp.StatusCode),
		zap.ByteString("body", respBody))

	return &RawResponse{StatusCode: resp.StatusCode, Body: respBody}, nil
}
