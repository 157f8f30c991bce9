package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyTTL is how long a replayable response is kept.
const IdempotencyTTL = 24 * time.Hour

// Key prefixes
const (
	responseCachePrefix = "idempotency:response:"
	inflightPrefix      = "idempotency:inflight:"
)

// inflightTTL bounds how long an abandoned request blocks its key.
const inflightTTL = 2 * time.Minute

// CachedResponse is a response stored for replay under an idempotency key.
type CachedResponse struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// ResponseCache stores responses of idempotent requests in Redis.
type ResponseCache struct {
	client *redis.Client
}

// NewResponseCache creates a new ResponseCache.
func NewResponseCache(client *redis.Client) *ResponseCache {
	return &ResponseCache{client: client}
}

// GetResponse retrieves a cached response. Returns nil on a cache miss.
func (s *ResponseCache) GetResponse(ctx context.Context, key string) (*CachedResponse, error) {
	data, err := s.client.Get(ctx, responseCachePrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var cached CachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return &cached, nil
}

// SetResponse stores a response for replay and clears the in-flight marker.
func (s *ResponseCache) SetResponse(ctx context.Context, key string, resp *CachedResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, responseCachePrefix+key, data, IdempotencyTTL)
	pipe.Del(ctx, inflightPrefix+key)
	_, err = pipe.Exec(ctx)
	return err
}

// Reserve marks key as in flight. Returns false if another request already holds it.
func (s *ResponseCache) Reserve(ctx context.Context, key string) (bool, error) {
	return s.client.SetNX(ctx, inflightPrefix+key, "1", inflightTTL).Result()
}

// Release clears the in-flight marker without storing a response.
func (s *ResponseCache) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, inflightPrefix+key).Err()
}
