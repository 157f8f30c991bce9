package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"

	"paycollect/internal/handler"
	"paycollect/internal/middleware"
	"paycollect/internal/redis"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	PaymentHandler *handler.PaymentHandler
	WebhookHandler *handler.WebhookHandler
	ResponseCache  redis.ResponseCacheInterface // Optional; nil disables Idempotency-Key replay.
	NewRelicApp    *newrelic.Application
	Logger         *zap.Logger
	APIKeys        []string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigins))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.TimeoutMiddleware(deps.RequestTimeout))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	payments := router.Group("/api/payment")
	{
		payments.POST("/initiate/",
			middleware.APIKeyMiddleware(deps.APIKeys),
			middleware.IdempotencyMiddleware(deps.ResponseCache, deps.Logger),
			deps.PaymentHandler.InitiatePayment,
		)
		payments.GET("/verify/", deps.PaymentHandler.VerifyPayment)
		payments.POST("/webhook/", deps.WebhookHandler.HandleWebhook)
	}

	return router
}
