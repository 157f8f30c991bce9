package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still carries the caller's token,
// so an expired holder never releases a lock taken over by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles per-payment distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquirePaymentLock attempts to lock the payment with the given reference.
// Returns the lock token when acquired, or "" if the lock is already held.
func (s *LockStore) AcquirePaymentLock(ctx context.Context, reference string, ttl time.Duration) (string, error) {
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, paymentLockKey(reference), token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}

	return token, nil
}

// ReleasePaymentLock releases the lock if token still owns it.
func (s *LockStore) ReleasePaymentLock(ctx context.Context, reference, token string) error {
	return releaseScript.Run(ctx, s.client, []string{paymentLockKey(reference)}, token).Err()
}

func paymentLockKey(reference string) string {
	return fmt.Sprintf("lock:payment:%s", reference)
}
