package middleware

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paycollect/internal/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	maxIdempotencyKey = 255
)

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response of a request that carries an
// already-used Idempotency-Key, so a client retry never starts a second payment.
// A nil cache disables replay. Cache failures let the request through.
func IdempotencyMiddleware(cache redis.ResponseCacheInterface, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyHeader)
		if cache == nil || key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		if len(key) > maxIdempotencyKey {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "Validation Error",
				"message": "Idempotency-Key is too long",
			})
			return
		}

		ctx := c.Request.Context()
		scoped := scopeKey(c, key)

		cached, err := cache.GetResponse(ctx, scoped)
		if err != nil {
			logger.Warn("Idempotency cache unavailable", zap.Error(err))
			c.Next()
			return
		}
		if cached != nil {
			c.Header("Idempotent-Replayed", "true")
			c.Data(cached.StatusCode, cached.ContentType, cached.Body)
			c.Abort()
			return
		}

		reserved, err := cache.Reserve(ctx, scoped)
		if err != nil {
			logger.Warn("Idempotency cache unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !reserved {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error":   "Conflict",
				"message": "a request with this Idempotency-Key is already in progress",
			})
			return
		}

		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w

		completed := false
		defer func() {
			// The response is already written; store it even if the client went away.
			storeCtx := context.WithoutCancel(ctx)
			status := w.Status()
			if !completed || status >= http.StatusInternalServerError {
				// Server failures and panics may be retried with the same key.
				if err := cache.Release(storeCtx, scoped); err != nil {
					logger.Warn("Failed to release idempotency key", zap.Error(err))
				}
				return
			}

			resp := &redis.CachedResponse{
				StatusCode:  status,
				ContentType: w.Header().Get("Content-Type"),
				Body:        w.body.Bytes(),
			}
			if err := cache.SetResponse(storeCtx, scoped, resp); err != nil {
				logger.Warn("Failed to store idempotent response", zap.Error(err))
			}
		}()

		c.Next()
		completed = true
	}
}

// scopeKey binds an idempotency key to the route it was used on.
func scopeKey(c *gin.Context, key string) string {
	return c.Request.Method + ":" + c.FullPath() + ":" + key
}
