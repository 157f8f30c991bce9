package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"paycollect/internal/domain"
	"paycollect/internal/gateway"
	"paycollect/internal/repository"
)

const (
	defaultPayerName = "Anonymous"
	minCurrencyLen   = 3
	maxCurrencyLen   = 10
	maxNameLen       = 255
	maxEmailLen      = 254
	maxPhoneLen      = 20
	maxTagLen        = 255
)

// maxAmount bounds amounts to 10 digits with 2 decimals.
var maxAmount = decimal.New(1, 8)

// Gateway is the processor API used by the payment services.
type Gateway interface {
	CreateCharge(ctx context.Context, req gateway.ChargeRequest) (*gateway.RawResponse, error)
	VerifyByTransactionID(ctx context.Context, transactionID string) (*gateway.RawResponse, error)
	VerifyByReference(ctx context.Context, reference string) (*gateway.RawResponse, error)
}

// CheckoutOptions configures the hosted checkout requested for every payment.
type CheckoutOptions struct {
	HomeCurrency  string
	RedirectURL   string // Verification endpoint the processor sends the payer back to.
	CheckoutTitle string
}

// PaymentService initiates hosted payments.
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	gateway     Gateway
	refs        *ReferenceGenerator
	opts        CheckoutOptions
	logger      *zap.Logger
	now         func() time.Time
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	gw Gateway,
	refs *ReferenceGenerator,
	opts CheckoutOptions,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		gateway:     gw,
		refs:        refs,
		opts:        opts,
		logger:      logger,
		now:         time.Now,
	}
}

// InitiateRequest contains the parameters for initiating a payment.
type InitiateRequest struct {
	Amount        decimal.Decimal
	Currency      string
	Name          string
	Email         string
	Phone         string
	PaymentMethod string
	Project       string
}

// InitiateResult is the outcome of a successful initiation.
type InitiateResult struct {
	Reference string
	Body      json.RawMessage // Processor response carrying the hosted checkout link.
}

// Initiate validates the request, asks the processor for a hosted checkout and records a pending payment.
// No payment is stored unless the processor accepted the charge.
func (s *PaymentService) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if err := s.normalize(&req); err != nil {
		return nil, err
	}

	reference := s.refs.Generate(req.Name, s.now())

	charge := gateway.ChargeRequest{
		TxRef:       reference,
		Amount:      req.Amount.StringFixed(2),
		Currency:    req.Currency,
		RedirectURL: s.opts.RedirectURL,
		Customer: gateway.Customer{
			Email:       req.Email,
			PhoneNumber: req.Phone,
			Name:        req.Name,
		},
		Customizations: gateway.Customizations{Title: s.opts.CheckoutTitle},
	}

	resp, err := s.gateway.CreateCharge(ctx, charge)
	if err != nil {
		s.logger.Error("Request to processor failed", zap.String("tx_ref", reference), zap.Error(err))
		return nil, err
	}

	if !resp.OK() {
		s.logger.Error("Payment initiation failed",
			zap.String("tx_ref", reference),
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("body", resp.Body))
		rejection := &GatewayRejectionError{StatusCode: resp.StatusCode, Body: resp.Body}
		if parsed, perr := gateway.ParseVerifyResponse(resp.Body); perr == nil {
			rejection.Message = parsed.MessageText()
		}
		return nil, rejection
	}

	if !json.Valid(resp.Body) {
		s.logger.Error("Processor accepted charge with a non-JSON body", zap.String("tx_ref", reference))
		return nil, ErrMalformedResponse
	}

	payment := &domain.Payment{
		TransactionReference: reference,
		Status:               domain.PaymentStatusPending,
		Amount:               req.Amount,
		Currency:             req.Currency,
		Contact: domain.Contact{
			Name:  req.Name,
			Email: req.Email,
			Phone: req.Phone,
		},
		PaymentMethod:    req.PaymentMethod,
		Project:          req.Project,
		ProviderResponse: json.RawMessage(resp.Body),
		CreatedAt:        s.now(),
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		s.logger.Error("Failed to record initiated payment", zap.String("tx_ref", reference), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Payment initiated",
		zap.String("tx_ref", reference),
		zap.String("amount", charge.Amount),
		zap.String("currency", charge.Currency))

	return &InitiateResult{Reference: reference, Body: json.RawMessage(resp.Body)}, nil
}

// GetPayment retrieves a payment by transaction reference.
func (s *PaymentService) GetPayment(ctx context.Context, reference string) (*domain.Payment, error) {
	if reference == "" {
		return nil, ErrMissingReference
	}
	return s.paymentRepo.GetByReference(ctx, reference)
}

// normalize validates req and fills defaults in place.
func (s *PaymentService) normalize(req *InitiateRequest) error {
	if !req.Amount.IsPositive() || !req.Amount.Equal(req.Amount.Round(2)) || !req.Amount.LessThan(maxAmount) {
		return ErrInvalidAmount
	}

	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		req.Currency = s.opts.HomeCurrency
	}
	if n := utf8.RuneCountInString(req.Currency); n < minCurrencyLen || n > maxCurrencyLen {
		return ErrInvalidCurrency
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		req.Name = defaultPayerName
	}

	if utf8.RuneCountInString(req.Name) > maxNameLen ||
		len(req.Email) > maxEmailLen ||
		utf8.RuneCountInString(req.Phone) > maxPhoneLen ||
		utf8.RuneCountInString(req.PaymentMethod) > maxTagLen ||
		utf8.RuneCountInString(req.Project) > maxTagLen {
		return ErrInvalidContact
	}

	return nil
}
