package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"

	"paycollect/internal/domain"
	"paycollect/internal/repository"
)

// PaymentRepository is a SQLite implementation of repository.PaymentRepository.
type PaymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository creates a new SQLite payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments
		 (transaction_reference, status, amount, currency, name, email,
		  phone_number, payment_method, project, provider_response, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.TransactionReference,
		string(payment.Status),
		payment.Amount.StringFixed(2),
		payment.Currency,
		nullString(payment.Contact.Name),
		nullString(payment.Contact.Email),
		nullString(payment.Contact.Phone),
		nullString(payment.PaymentMethod),
		payment.Project,
		nullString(string(payment.ProviderResponse)),
		payment.CreatedAt.UTC(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return repository.ErrDuplicateReference
		}
		return err
	}
	return nil
}

// GetByReference retrieves a payment by its transaction reference.
func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT transaction_reference, status, amount, currency, name, email,
		        phone_number, payment_method, project, provider_response, created_at
		 FROM payments
		 WHERE transaction_reference = ?`,
		reference,
	)

	var (
		p                                           domain.Payment
		status                                      string
		name, email, phone, method, proj, providerR sql.NullString
	)
	if err := row.Scan(
		&p.TransactionReference,
		&status,
		&p.Amount,
		&p.Currency,
		&name,
		&email,
		&phone,
		&method,
		&proj,
		&providerR,
		&p.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	p.Status = domain.PaymentStatus(status)
	p.Contact = domain.Contact{Name: name.String, Email: email.String, Phone: phone.String}
	p.PaymentMethod = method.String
	p.Project = proj.String
	if providerR.Valid {
		p.ProviderResponse = []byte(providerR.String)
	}

	return &p, nil
}

// Update overwrites status, provider response and contact fields of a non-terminal payment.
func (r *PaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments
		 SET status = ?, provider_response = ?, name = ?, email = ?, phone_number = ?
		 WHERE transaction_reference = ?
		   AND status NOT IN ('successful', 'cancelled', 'failed')`,
		string(payment.Status),
		nullString(string(payment.ProviderResponse)),
		nullString(payment.Contact.Name),
		nullString(payment.Contact.Email),
		nullString(payment.Contact.Phone),
		payment.TransactionReference,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	var count int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM payments WHERE transaction_reference = ?`,
		payment.TransactionReference,
	).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrStaleState
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
