package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusPaid       PaymentStatus = "paid" // Never assigned; accepted when read back from the store.
	PaymentStatusSuccessful PaymentStatus = "successful"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
	PaymentStatusFailed     PaymentStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed out of the status.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusSuccessful, PaymentStatusCancelled, PaymentStatusFailed:
		return true
	default:
		return false
	}
}

// Valid reports whether s is one of the known statuses.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusSuccessful, PaymentStatusCancelled, PaymentStatusFailed:
		return true
	default:
		return false
	}
}

// Contact holds the optional payer details.
type Contact struct {
	Name  string
	Email string
	Phone string
}

// Payment represents one hosted payment attempt, keyed by its transaction reference.
type Payment struct {
	TransactionReference string
	Status               PaymentStatus
	Amount               decimal.Decimal
	Currency             string
	Contact              Contact
	PaymentMethod        string
	Project              string
	ProviderResponse     json.RawMessage // Last raw processor response or webhook payload.
	CreatedAt            time.Time
}

// BackfillContact copies fields from c into the payment's contact where the payment has none.
func (p *Payment) BackfillContact(c Contact) {
	if p.Contact.Name == "" {
		p.Contact.Name = c.Name
	}
	if p.Contact.Email == "" {
		p.Contact.Email = c.Email
	}
	if p.Contact.Phone == "" {
		p.Contact.Phone = c.Phone
	}
}
