package sqlite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycollect/internal/domain"
	"paycollect/internal/repository"
)

func newTestRepository(t *testing.T) *PaymentRepository {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db))
	// Running twice must be harmless.
	require.NoError(t, Migrate(ctx, db))

	return NewPaymentRepository(db)
}

func pendingPayment(ref string) *domain.Payment {
	return &domain.Payment{
		TransactionReference: ref,
		Status:               domain.PaymentStatusPending,
		Amount:               decimal.RequireFromString("1500.5"),
		Currency:             "UGX",
		Contact:              domain.Contact{Name: "Jane Doe"},
		Project:              "water",
		CreatedAt:            time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestPaymentRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, pendingPayment("tx-jane-1")))

	got, err := repo.GetByReference(ctx, "tx-jane-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, got.Status)
	assert.Equal(t, "1500.50", got.Amount.StringFixed(2))
	assert.Equal(t, "UGX", got.Currency)
	assert.Equal(t, "Jane Doe", got.Contact.Name)
	assert.Empty(t, got.Contact.Email)
	assert.Equal(t, "water", got.Project)
	assert.Nil(t, got.ProviderResponse)
	assert.True(t, got.CreatedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
}

func TestPaymentRepository_CreateDuplicate(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, pendingPayment("tx-dup")))
	err := repo.Create(ctx, pendingPayment("tx-dup"))
	assert.ErrorIs(t, err, repository.ErrDuplicateReference)
}

func TestPaymentRepository_GetUnknown(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetByReference(context.Background(), "tx-missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPaymentRepository_Update(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, pendingPayment("tx-upd")))

	p, err := repo.GetByReference(ctx, "tx-upd")
	require.NoError(t, err)
	p.Status = domain.PaymentStatusSuccessful
	p.ProviderResponse = json.RawMessage(`{"status":"successful"}`)
	p.BackfillContact(domain.Contact{Name: "Other", Email: "jane@example.com", Phone: "+256700000000"})
	require.NoError(t, repo.Update(ctx, p))

	got, err := repo.GetByReference(ctx, "tx-upd")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSuccessful, got.Status)
	assert.JSONEq(t, `{"status":"successful"}`, string(got.ProviderResponse))
	assert.Equal(t, domain.Contact{Name: "Jane Doe", Email: "jane@example.com", Phone: "+256700000000"}, got.Contact)

	// A terminal payment is never overwritten.
	got.Status = domain.PaymentStatusFailed
	assert.ErrorIs(t, repo.Update(ctx, got), repository.ErrStaleState)

	again, err := repo.GetByReference(ctx, "tx-upd")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSuccessful, again.Status)
}

func TestPaymentRepository_UpdateUnknown(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.Update(context.Background(), pendingPayment("tx-missing"))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
