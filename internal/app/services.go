package app

import (
	"net/http"

	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"

	"paycollect/internal/config"
	"paycollect/internal/gateway"
	"paycollect/internal/redis"
	"paycollect/internal/repository"
	"paycollect/internal/service"
)

// Services holds the wired payment services.
type Services struct {
	Payments       *service.PaymentService
	Reconciliation *service.ReconciliationService
	WebhookAuth    *service.WebhookAuthenticator
}

// NewGatewayClient creates the processor client. Outbound calls are traced when nrApp is set.
func NewGatewayClient(cfg config.GatewayConfig, nrApp *newrelic.Application, logger *zap.Logger) *gateway.Client {
	var transport http.RoundTripper
	if nrApp != nil {
		transport = newrelic.NewRoundTripper(nil)
	}
	return gateway.NewClient(cfg.BaseURL, cfg.SecretKey, cfg.Timeout, transport, logger.Named("gateway"))
}

// NewServices wires the payment services. lockStore may be nil.
func NewServices(
	cfg *config.Config,
	payments repository.PaymentRepository,
	gw service.Gateway,
	lockStore redis.LockStoreInterface,
	logger *zap.Logger,
) (*Services, error) {
	refs, err := service.NewReferenceGenerator(cfg.Payment.NodeID)
	if err != nil {
		return nil, err
	}

	paymentService := service.NewPaymentService(payments, gw, refs, service.CheckoutOptions{
		HomeCurrency:  cfg.Payment.HomeCurrency,
		RedirectURL:   cfg.RedirectURL(),
		CheckoutTitle: cfg.Gateway.CheckoutTitle,
	}, logger.Named("payment"))

	reconciliationService := service.NewReconciliationService(payments, gw, lockStore, cfg.Redis.LockTTL, logger.Named("reconciliation"))

	return &Services{
		Payments:       paymentService,
		Reconciliation: reconciliationService,
		WebhookAuth:    service.NewWebhookAuthenticator(cfg.Webhook.SecretHash),
	}, nil
}
