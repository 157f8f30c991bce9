package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"paycollect/internal/domain"
	"paycollect/internal/gateway"
	"paycollect/internal/redis"
	"paycollect/internal/repository"
)

const defaultLockTTL = 30 * time.Second

// OutcomeSource identifies which channel reported an outcome.
type OutcomeSource string

const (
	SourcePoll    OutcomeSource = "poll"
	SourceWebhook OutcomeSource = "webhook"
)

// Outcome is a processor-reported result for one payment, normalized across channels.
type Outcome struct {
	Reference         string
	Source            OutcomeSource
	ReportedStatus    string
	TransactionStatus string
	Confirmed         bool // The processor confirmed the payment as successful.
	Contact           domain.Contact
	Raw               json.RawMessage
}

// ReconciliationService converges payments to the processor's outcome, from client polls and webhooks alike.
type ReconciliationService struct {
	paymentRepo repository.PaymentRepository
	gateway     Gateway
	lockStore   redis.LockStoreInterface
	lockTTL     time.Duration
	logger      *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService.
// lockStore may be nil, in which case only the store's compare-and-set guards concurrent updates.
func NewReconciliationService(
	paymentRepo repository.PaymentRepository,
	gw Gateway,
	lockStore redis.LockStoreInterface,
	lockTTL time.Duration,
	logger *zap.Logger,
) *ReconciliationService {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &ReconciliationService{
		paymentRepo: paymentRepo,
		gateway:     gw,
		lockStore:   lockStore,
		lockTTL:     lockTTL,
		logger:      logger,
	}
}

// VerifyRequest contains the parameters of a client verification poll.
type VerifyRequest struct {
	Reference     string
	TransactionID string // Optional processor transaction id.
}

// Verify reconciles a payment against the processor's verify endpoint.
// A payment that is already successful is returned from the store without calling the processor.
// Returns a *VerificationFailedError alongside the payment when the processor does not confirm success.
func (s *ReconciliationService) Verify(ctx context.Context, req VerifyRequest) (*domain.Payment, error) {
	if req.Reference == "" {
		return nil, ErrMissingReference
	}

	payment, err := s.paymentRepo.GetByReference(ctx, req.Reference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("Payment not found", zap.String("tx_ref", req.Reference))
		}
		return nil, err
	}

	if payment.Status == domain.PaymentStatusSuccessful {
		s.logger.Info("Payment already verified as successful", zap.String("tx_ref", req.Reference))
		return payment, nil
	}

	var resp *gateway.RawResponse
	if req.TransactionID != "" {
		resp, err = s.gateway.VerifyByTransactionID(ctx, req.TransactionID)
	} else {
		resp, err = s.gateway.VerifyByReference(ctx, req.Reference)
	}
	if err != nil {
		s.logger.Error("Network error during verification", zap.String("tx_ref", req.Reference), zap.Error(err))
		return nil, err
	}

	parsed, err := gateway.ParseVerifyResponse(resp.Body)
	if err != nil {
		s.logger.Error("Invalid JSON response from processor",
			zap.String("tx_ref", req.Reference),
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("body", resp.Body))
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if !resp.OK() {
		s.logger.Error("Processor verification error",
			zap.String("tx_ref", req.Reference),
			zap.Int("status_code", resp.StatusCode),
			zap.String("message", parsed.MessageText()))
		return nil, &GatewayRejectionError{StatusCode: resp.StatusCode, Body: resp.Body, Message: parsed.MessageText()}
	}

	outcome := pollOutcome(req, parsed, resp.Body)
	if !referenceMatches(req, parsed) {
		s.logger.Warn("Verified transaction belongs to another reference",
			zap.String("tx_ref", req.Reference),
			zap.String("transaction_id", req.TransactionID),
			zap.String("reported_tx_ref", txRefOf(parsed)))
		return payment, &VerificationFailedError{
			ReportedStatus:    outcome.ReportedStatus,
			TransactionStatus: outcome.TransactionStatus,
			Message:           "transaction does not belong to this payment",
		}
	}

	payment, _, err = s.apply(ctx, outcome)
	if err != nil {
		return nil, err
	}

	if payment.Status != domain.PaymentStatusSuccessful {
		s.logger.Warn("Payment verification failed",
			zap.String("tx_ref", req.Reference),
			zap.String("status", outcome.ReportedStatus),
			zap.String("transaction_status", outcome.TransactionStatus))
		return payment, &VerificationFailedError{
			ReportedStatus:    outcome.ReportedStatus,
			TransactionStatus: outcome.TransactionStatus,
			Message:           parsed.MessageText(),
		}
	}

	return payment, nil
}

// WebhookResult describes how an authenticated webhook was applied.
type WebhookResult struct {
	Reference      string
	ReportedStatus string
	Payment        *domain.Payment // Nil when the event was not final and the store was not consulted.
	Changed        bool
}

// ProcessWebhook applies an already-authenticated webhook body.
// The webhook carries a single status field; its authenticity comes from the verified hash.
func (s *ReconciliationService) ProcessWebhook(ctx context.Context, body []byte) (*WebhookResult, error) {
	event, err := gateway.ParseWebhookEvent(body)
	if err != nil {
		s.logger.Error("Failed to parse webhook data", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookPayload, err)
	}

	if event.Reference == "" {
		s.logger.Error("No transaction reference found in webhook data", zap.String("event", event.Event))
		return nil, ErrMissingReference
	}

	s.logger.Info("Processing webhook",
		zap.String("tx_ref", event.Reference),
		zap.String("event", event.Event),
		zap.String("status", event.Status),
		zap.String("currency", event.Currency))

	outcome := Outcome{
		Reference:      event.Reference,
		Source:         SourceWebhook,
		ReportedStatus: event.Status,
		Confirmed:      event.Status == gateway.TransactionSuccessful,
		Contact:        event.Customer,
		Raw:            json.RawMessage(body),
	}

	result := &WebhookResult{Reference: event.Reference, ReportedStatus: event.Status}

	// Anything but a confirmed success is acknowledged without touching the store, so an unknown
	// reference on such an event gets 200 rather than 404. Failed checkout attempts leave the payment pending.
	if !outcome.Confirmed {
		s.logger.Info("Payment not successful, acknowledging", zap.String("tx_ref", event.Reference), zap.String("status", event.Status))
		return result, nil
	}

	payment, changed, err := s.apply(ctx, outcome)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("Payment not found for webhook",
				zap.String("tx_ref", event.Reference),
				zap.String("status", event.Status))
		} else {
			s.logger.Error("Error updating payment from webhook",
				zap.String("tx_ref", event.Reference),
				zap.String("status", event.Status),
				zap.Error(err))
		}
		return nil, err
	}

	result.Payment = payment
	result.Changed = changed
	return result, nil
}

// apply is the transition rule shared by both channels. It reports whether the payment changed.
// Terminal payments are never rewritten, so repeated notifications have no second effect.
func (s *ReconciliationService) apply(ctx context.Context, o Outcome) (*domain.Payment, bool, error) {
	if s.lockStore != nil {
		token, err := s.lockStore.AcquirePaymentLock(ctx, o.Reference, s.lockTTL)
		if err != nil {
			return nil, false, fmt.Errorf("failed to lock payment %s: %w", o.Reference, err)
		}
		if token == "" {
			return nil, false, ErrReconcileInProgress
		}
		defer func() {
			if err := s.lockStore.ReleasePaymentLock(context.WithoutCancel(ctx), o.Reference, token); err != nil {
				s.logger.Warn("Failed to release payment lock", zap.String("tx_ref", o.Reference), zap.Error(err))
			}
		}()
	}

	payment, err := s.paymentRepo.GetByReference(ctx, o.Reference)
	if err != nil {
		return nil, false, err
	}

	if payment.Status.IsTerminal() {
		s.logger.Info("Payment already final, ignoring outcome",
			zap.String("tx_ref", o.Reference),
			zap.String("current_status", string(payment.Status)),
			zap.String("reported_status", o.ReportedStatus),
			zap.String("source", string(o.Source)))
		return payment, false, nil
	}

	if !o.Confirmed {
		return payment, false, nil
	}

	next := *payment
	next.Status = domain.PaymentStatusSuccessful
	next.BackfillContact(o.Contact)
	next.ProviderResponse = o.Raw

	if err := s.paymentRepo.Update(ctx, &next); err != nil {
		if !errors.Is(err, repository.ErrStaleState) {
			return nil, false, err
		}
		// Another reconciler finalized the payment between our read and write.
		current, err := s.paymentRepo.GetByReference(ctx, o.Reference)
		if err != nil {
			return nil, false, err
		}
		return current, false, nil
	}

	s.logger.Info("Payment status updated",
		zap.String("tx_ref", o.Reference),
		zap.String("from", string(payment.Status)),
		zap.String("to", string(next.Status)),
		zap.String("source", string(o.Source)))

	return &next, true, nil
}

func pollOutcome(req VerifyRequest, parsed *gateway.VerifyResponse, raw []byte) Outcome {
	o := Outcome{
		Reference:         req.Reference,
		Source:            SourcePoll,
		ReportedStatus:    parsed.TopStatus(),
		TransactionStatus: parsed.TransactionStatus(),
		Confirmed:         parsed.Confirmed(),
		Raw:               json.RawMessage(raw),
	}

	if parsed.Data != nil && parsed.Data.Customer != nil {
		c := parsed.Data.Customer
		o.Contact = domain.Contact{Name: derefString(c.Name), Email: derefString(c.Email), Phone: derefString(c.PhoneNumber)}
	}

	return o
}

// referenceMatches guards lookups by a client-supplied transaction id: the transaction
// must belong to the payment being verified.
func referenceMatches(req VerifyRequest, parsed *gateway.VerifyResponse) bool {
	if req.TransactionID == "" {
		return true
	}
	return txRefOf(parsed) == req.Reference
}

func txRefOf(parsed *gateway.VerifyResponse) string {
	if parsed.Data == nil {
		return ""
	}
	return derefString(parsed.Data.TxRef)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
