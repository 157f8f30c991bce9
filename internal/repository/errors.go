package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicateReference is returned when a payment with the same transaction reference already exists.
	ErrDuplicateReference = errors.New("duplicate transaction reference")

	// ErrStaleState is returned when an update lost the race against a write that already finalized the payment.
	ErrStaleState = errors.New("payment already in a terminal state")
)
