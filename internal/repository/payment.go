package repository

import (
	"context"

	"paycollect/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment.
	// Returns ErrDuplicateReference if the transaction reference is taken.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByReference retrieves a payment by its transaction reference.
	GetByReference(ctx context.Context, reference string) (*domain.Payment, error)

	// Update overwrites the mutable fields of a payment that is not yet terminal.
	// Returns ErrStaleState if the stored payment is already terminal and ErrNotFound if it does not exist.
	Update(ctx context.Context, payment *domain.Payment) error
}
