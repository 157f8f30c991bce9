package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"paycollect/internal/domain"
	"paycollect/internal/repository"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
			transaction_reference, status, amount, currency, name, email,
			phone_number, payment_method, project, provider_response, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.TransactionReference,
		payment.Status,
		payment.Amount,
		payment.Currency,
		nullString(payment.Contact.Name),
		nullString(payment.Contact.Email),
		nullString(payment.Contact.Phone),
		nullString(payment.PaymentMethod),
		payment.Project,
		nullJSON(payment.ProviderResponse),
		payment.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return repository.ErrDuplicateReference
		}
		return err
	}

	return nil
}

// GetByReference retrieves a payment by its transaction reference.
func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	query := `
		SELECT transaction_reference, status, amount, currency, name, email,
			phone_number, payment_method, project, provider_response, created_at
		FROM payments WHERE transaction_reference = $1
	`

	var (
		payment                          domain.Payment
		name, email, phone, method, proj sql.NullString
		providerResponse                 []byte
	)
	err := r.q.QueryRowContext(ctx, query, reference).Scan(
		&payment.TransactionReference,
		&payment.Status,
		&payment.Amount,
		&payment.Currency,
		&name,
		&email,
		&phone,
		&method,
		&proj,
		&providerResponse,
		&payment.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	payment.Contact = domain.Contact{Name: name.String, Email: email.String, Phone: phone.String}
	payment.PaymentMethod = method.String
	payment.Project = proj.String
	payment.ProviderResponse = providerResponse

	return &payment, nil
}

// Update overwrites status, provider response and contact fields of a non-terminal payment.
// The status guard in the WHERE clause makes the write a compare-and-set against concurrent reconcilers.
func (r *PaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, provider_response = $2, name = $3, email = $4, phone_number = $5
		WHERE transaction_reference = $6
			AND status NOT IN ('successful', 'cancelled', 'failed')
	`

	result, err := r.q.ExecContext(ctx, query,
		payment.Status,
		nullJSON(payment.ProviderResponse),
		nullString(payment.Contact.Name),
		nullString(payment.Contact.Email),
		nullString(payment.Contact.Phone),
		payment.TransactionReference,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return r.missOrStale(ctx, payment.TransactionReference)
	}

	return nil
}

// missOrStale tells apart an unknown reference from a payment that is already terminal.
func (r *PaymentRepository) missOrStale(ctx context.Context, reference string) error {
	var exists bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM payments WHERE transaction_reference = $1)`,
		reference,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrStaleState
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
