package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for per-payment distributed locking.
type LockStoreInterface interface {
	AcquirePaymentLock(ctx context.Context, reference string, ttl time.Duration) (string, error)
	ReleasePaymentLock(ctx context.Context, reference, token string) error
}

// ResponseCacheInterface defines the interface for idempotent response replay.
type ResponseCacheInterface interface {
	GetResponse(ctx context.Context, key string) (*CachedResponse, error)
	SetResponse(ctx context.Context, key string, resp *CachedResponse) error
	Reserve(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface     = (*LockStore)(nil)
	_ ResponseCacheInterface = (*ResponseCache)(nil)
)
