package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"paycollect/internal/redis"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ──────────────────────────────────────────────
// API KEY
// ──────────────────────────────────────────────

func TestAPIKeyMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(APIKeyMiddleware([]string{"key-one", " key-two "}))
	router.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	testCases := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"no key", nil, http.StatusUnauthorized},
		{"authorization scheme", map[string]string{"Authorization": "Api-Key key-one"}, http.StatusOK},
		{"header", map[string]string{"X-API-Key": "key-two"}, http.StatusOK},
		{"wrong key", map[string]string{"X-API-Key": "key-three"}, http.StatusForbidden},
		{"bearer is not an api key", map[string]string{"Authorization": "Bearer key-one"}, http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, serve(router, http.MethodPost, "/x", tc.headers).Code)
		})
	}
}

func TestAPIKeyMiddleware_OpenWithoutKeys(t *testing.T) {
	router := gin.New()
	router.Use(APIKeyMiddleware(nil))
	router.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/x", nil).Code)
}

// ──────────────────────────────────────────────
// TIMEOUT
// ──────────────────────────────────────────────

func TestTimeoutMiddleware_SetsDeadline(t *testing.T) {
	router := gin.New()
	router.Use(TimeoutMiddleware(50 * time.Millisecond))

	var deadline time.Time
	var ok bool
	router.GET("/x", func(c *gin.Context) {
		deadline, ok = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})

	serve(router, http.MethodGet, "/x", nil)

	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, time.Second)
}

func TestTimeoutMiddleware_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(TimeoutMiddleware(0))

	var ok bool
	router.GET("/x", func(c *gin.Context) {
		_, ok = c.Request.Context().Deadline()
	})

	serve(router, http.MethodGet, "/x", nil)

	assert.False(t, ok)
}

// ──────────────────────────────────────────────
// REQUEST LOGGER
// ──────────────────────────────────────────────

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	router := gin.New()
	router.Use(RequestLogger(zap.New(core)))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := serve(router, http.MethodGet, "/ok", map[string]string{RequestIDHeader: "req-123"})
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))

	w = serve(router, http.MethodGet, "/boom", nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, int64(500), entries[1].ContextMap()["status"])
}

// ──────────────────────────────────────────────
// CORS
// ──────────────────────────────────────────────

func TestCORSMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware([]string{"https://shop.example"}))
	router.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, http.MethodOptions, "/x", map[string]string{"Origin": "https://shop.example"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(router, http.MethodPost, "/x", map[string]string{"Origin": "https://evil.example"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

// ──────────────────────────────────────────────
// IDEMPOTENCY
// ──────────────────────────────────────────────

type fakeResponseCache struct {
	mu        sync.Mutex
	responses map[string]*redis.CachedResponse
	inflight  map[string]bool
	err       error
}

func newFakeResponseCache() *fakeResponseCache {
	return &fakeResponseCache{
		responses: make(map[string]*redis.CachedResponse),
		inflight:  make(map[string]bool),
	}
}

func (f *fakeResponseCache) GetResponse(ctx context.Context, key string) (*redis.CachedResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.responses[key], nil
}

func (f *fakeResponseCache) SetResponse(ctx context.Context, key string, resp *redis.CachedResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[key] = resp
	delete(f.inflight, key)
	return nil
}

func (f *fakeResponseCache) Reserve(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inflight[key] {
		return false, nil
	}
	f.inflight[key] = true
	return true, nil
}

func (f *fakeResponseCache) Release(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inflight, key)
	return nil
}

func idempotentRouter(cache redis.ResponseCacheInterface, status int, calls *int) *gin.Engine {
	router := gin.New()
	router.Use(IdempotencyMiddleware(cache, zap.NewNop()))
	router.POST("/pay", func(c *gin.Context) {
		*calls++
		c.JSON(status, gin.H{"call": *calls})
	})
	return router
}

func TestIdempotencyMiddleware_ReplaysResponse(t *testing.T) {
	cache := newFakeResponseCache()
	calls := 0
	router := idempotentRouter(cache, http.StatusOK, &calls)
	headers := map[string]string{idempotencyHeader: "abc"}

	first := serve(router, http.MethodPost, "/pay", headers)
	second := serve(router, http.MethodPost, "/pay", headers)

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
}

func TestIdempotencyMiddleware_DifferentKeysRunTwice(t *testing.T) {
	cache := newFakeResponseCache()
	calls := 0
	router := idempotentRouter(cache, http.StatusOK, &calls)

	serve(router, http.MethodPost, "/pay", map[string]string{idempotencyHeader: "a"})
	serve(router, http.MethodPost, "/pay", map[string]string{idempotencyHeader: "b"})
	serve(router, http.MethodPost, "/pay", nil)

	assert.Equal(t, 3, calls)
}

func TestIdempotencyMiddleware_ServerErrorsAreNotReplayed(t *testing.T) {
	cache := newFakeResponseCache()
	calls := 0
	router := idempotentRouter(cache, http.StatusInternalServerError, &calls)
	headers := map[string]string{idempotencyHeader: "abc"}

	serve(router, http.MethodPost, "/pay", headers)
	serve(router, http.MethodPost, "/pay", headers)

	assert.Equal(t, 2, calls)
}

func TestIdempotencyMiddleware_PanicReleasesKey(t *testing.T) {
	cache := newFakeResponseCache()
	calls := 0
	router := gin.New()
	router.Use(gin.RecoveryWithWriter(io.Discard))
	router.Use(IdempotencyMiddleware(cache, zap.NewNop()))
	router.POST("/pay", func(c *gin.Context) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		c.JSON(http.StatusOK, gin.H{"call": calls})
	})
	headers := map[string]string{idempotencyHeader: "abc"}

	first := serve(router, http.MethodPost, "/pay", headers)
	require.Equal(t, http.StatusInternalServerError, first.Code)
	assert.False(t, cache.inflight[scopedForTest("abc")])

	second := serve(router, http.MethodPost, "/pay", headers)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyMiddleware_InFlightKeyConflicts(t *testing.T) {
	cache := newFakeResponseCache()
	calls := 0
	router := idempotentRouter(cache, http.StatusOK, &calls)
	cache.inflight[scopedForTest("abc")] = true

	w := serve(router, http.MethodPost, "/pay", map[string]string{idempotencyHeader: "abc"})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 0, calls)
}

func TestIdempotencyMiddleware_CacheFailureFailsOpen(t *testing.T) {
	cache := newFakeResponseCache()
	cache.err = errors.New("redis down")
	calls := 0
	router := idempotentRouter(cache, http.StatusOK, &calls)

	w := serve(router, http.MethodPost, "/pay", map[string]string{idempotencyHeader: "abc"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, calls)
}

func scopedForTest(key string) string {
	return http.MethodPost + ":/pay:" + key
}
