package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"

	"paycollect/internal/app"
	"paycollect/internal/config"
	"paycollect/internal/handler"
	internalRedis "paycollect/internal/redis"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", zap.Error(err))
		} else {
			logger.Info("New Relic enabled", zap.String("app", cfg.NewRelic.AppName))
		}
	}

	store, err := app.OpenStore(ctx, cfg.Database, nrApp)
	if err != nil {
		logger.Fatal("failed to open payment store", zap.Error(err))
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		logger.Fatal("failed to migrate payment store", zap.Error(err))
	}
	logger.Info("Payment store ready", zap.String("driver", cfg.Database.Driver))

	// Redis is optional; without it reconciliation relies on the store's conditional update alone
	// and Idempotency-Key replay is off.
	var (
		lockStore     internalRedis.LockStoreInterface
		responseCache internalRedis.ResponseCacheInterface
	)
	if cfg.Redis.Enabled {
		redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		lockStore = internalRedis.NewLockStore(redisClient)
		responseCache = internalRedis.NewResponseCache(redisClient)
		logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	if len(cfg.APIKeys) == 0 {
		logger.Warn("API_KEYS is empty; payment initiation is open to any caller")
	}

	server, err := wireServer(cfg, store, lockStore, responseCache, nrApp, logger)
	if err != nil {
		logger.Fatal("failed to wire server", zap.Error(err))
	}

	// Start server in goroutine.
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	cfg *config.Config,
	store *app.Store,
	lockStore internalRedis.LockStoreInterface,
	responseCache internalRedis.ResponseCacheInterface,
	nrApp *newrelic.Application,
	logger *zap.Logger,
) (*http.Server, error) {
	gatewayClient := app.NewGatewayClient(cfg.Gateway, nrApp, logger)

	svcs, err := app.NewServices(cfg, store.Payments, gatewayClient, lockStore, logger)
	if err != nil {
		return nil, err
	}

	router := app.NewRouter(app.RouterDeps{
		PaymentHandler: handler.NewPaymentHandler(svcs.Payments, svcs.Reconciliation),
		WebhookHandler: handler.NewWebhookHandler(svcs.WebhookAuth, svcs.Reconciliation, logger.Named("webhook")),
		ResponseCache:  responseCache,
		NewRelicApp:    nrApp,
		Logger:         logger.Named("http"),
		APIKeys:        cfg.APIKeys,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, nil
}
