// Package testutil holds in-memory fakes shared by package tests.
package testutil

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"paycollect/internal/domain"
	"paycollect/internal/gateway"
	"paycollect/internal/redis"
	"paycollect/internal/repository"
)

var (
	_ repository.PaymentRepository = (*MockPaymentRepository)(nil)
	_ redis.LockStoreInterface     = (*MockLockStore)(nil)
)

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is an in-memory PaymentRepository with the store's compare-and-set update.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment

	// Counters for verification
	CreateCallCount int32
	GetCallCount    int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	GetError    error
	UpdateError error

	// BeforeUpdate runs ahead of every Update, outside the lock. Tests use it to race a competing writer.
	BeforeUpdate func(payment *domain.Payment)
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.Payment),
	}
}

// AddPayment seeds a payment.
func (m *MockPaymentRepository) AddPayment(payment *domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[payment.TransactionReference] = clonePayment(payment)
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[payment.TransactionReference]; ok {
		return repository.ErrDuplicateReference
	}
	m.payments[payment.TransactionReference] = clonePayment(payment)
	return nil
}

func (m *MockPaymentRepository) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	payment, ok := m.payments[reference]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePayment(payment), nil
}

func (m *MockPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.BeforeUpdate != nil {
		m.BeforeUpdate(payment)
	}
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.payments[payment.TransactionReference]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Status.IsTerminal() {
		return repository.ErrStaleState
	}
	m.payments[payment.TransactionReference] = clonePayment(payment)
	return nil
}

// GetPayment returns the stored payment for test assertions.
func (m *MockPaymentRepository) GetPayment(reference string) *domain.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payment, ok := m.payments[reference]
	if !ok {
		return nil
	}
	return clonePayment(payment)
}

// Count returns the number of stored payments.
func (m *MockPaymentRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payments)
}

func clonePayment(p *domain.Payment) *domain.Payment {
	cp := *p
	if p.ProviderResponse != nil {
		cp.ProviderResponse = append(json.RawMessage(nil), p.ProviderResponse...)
	}
	return &cp
}

// ──────────────────────────────────────────────
// FAKE GATEWAY
// ──────────────────────────────────────────────

// FakeGateway returns scripted processor responses and records what it was asked.
type FakeGateway struct {
	mu sync.Mutex

	ChargeResponse *gateway.RawResponse
	ChargeError    error
	VerifyResponse *gateway.RawResponse
	VerifyError    error

	Charges            []gateway.ChargeRequest
	VerifiedIDs        []string
	VerifiedReferences []string
	CreateChargeCount  int32
	VerifyByIDCount    int32
	VerifyByRefCount   int32
}

// NewFakeGateway creates a gateway that accepts every charge with a checkout link.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		ChargeResponse: &gateway.RawResponse{StatusCode: 200, Body: []byte(`{"status":"success","data":{"link":"https://checkout.example/pay/abc"}}`)},
	}
}

// RespondVerify scripts the verify endpoints with status and body.
func (g *FakeGateway) RespondVerify(status int, body string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.VerifyResponse = &gateway.RawResponse{StatusCode: status, Body: []byte(body)}
}

// RespondCharge scripts the create-charge endpoint with status and body.
func (g *FakeGateway) RespondCharge(status int, body string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ChargeResponse = &gateway.RawResponse{StatusCode: status, Body: []byte(body)}
}

func (g *FakeGateway) CreateCharge(ctx context.Context, req gateway.ChargeRequest) (*gateway.RawResponse, error) {
	atomic.AddInt32(&g.CreateChargeCount, 1)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Charges = append(g.Charges, req)
	if g.ChargeError != nil {
		return nil, g.ChargeError
	}
	return g.ChargeResponse, nil
}

func (g *FakeGateway) VerifyByTransactionID(ctx context.Context, transactionID string) (*gateway.RawResponse, error) {
	atomic.AddInt32(&g.VerifyByIDCount, 1)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.VerifiedIDs = append(g.VerifiedIDs, transactionID)
	return g.verify()
}

func (g *FakeGateway) VerifyByReference(ctx context.Context, reference string) (*gateway.RawResponse, error) {
	atomic.AddInt32(&g.VerifyByRefCount, 1)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.VerifiedReferences = append(g.VerifiedReferences, reference)
	return g.verify()
}

func (g *FakeGateway) verify() (*gateway.RawResponse, error) {
	if g.VerifyError != nil {
		return nil, g.VerifyError
	}
	if g.VerifyResponse == nil {
		return &gateway.RawResponse{StatusCode: 200, Body: []byte(`{"status":"success","data":{"status":"pending"}}`)}, nil
	}
	return g.VerifyResponse, nil
}

// VerifyCalls returns the total number of verify calls.
func (g *FakeGateway) VerifyCalls() int32 {
	return atomic.LoadInt32(&g.VerifyByIDCount) + atomic.LoadInt32(&g.VerifyByRefCount)
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is an in-memory per-payment lock.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]string
	seq   int

	AcquireCallCount int32
	ReleaseCallCount int32

	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]string)}
}

// Hold marks reference as locked by someone else.
func (m *MockLockStore) Hold(reference string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[reference] = "held-elsewhere"
}

func (m *MockLockStore) AcquirePaymentLock(ctx context.Context, reference string, ttl time.Duration) (string, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return "", m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[reference]; held {
		return "", nil
	}
	m.seq++
	token := reference + "#" + strconv.Itoa(m.seq)
	m.locks[reference] = token
	return token, nil
}

func (m *MockLockStore) ReleasePaymentLock(ctx context.Context, reference, token string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[reference] == token {
		delete(m.locks, reference)
	}
	return nil
}

// IsLocked reports whether reference is currently locked.
func (m *MockLockStore) IsLocked(reference string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.locks[reference]
	return held
}
