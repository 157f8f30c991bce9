package gateway

import (
	"encoding/json"
	"fmt"

	"paycollect/internal/domain"
)

// WebhookHashHeader carries the shared secret on processor webhooks.
const WebhookHashHeader = "verif-hash"

// WebhookEvent is a webhook payload normalized across the flat and enveloped payload shapes.
type WebhookEvent struct {
	Event     string
	Reference string
	Status    string
	Currency  string
	Customer  domain.Contact
}

// flatPayload is the legacy shape: {"txRef": ..., "status": ..., "customer": {"fullName": ...}}.
type flatPayload struct {
	Event    *string         `json:"event"`
	TxRef    *string         `json:"txRef"`
	Status   *string         `json:"status"`
	Currency *string         `json:"currency"`
	Customer *flatPayer      `json:"customer"`
	Data     json.RawMessage `json:"data"`
}

type flatPayer struct {
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
}

// envelopedPayload is the {"event": ..., "data": {"tx_ref": ...}} shape.
type envelopedPayload struct {
	TxRef    *string           `json:"tx_ref"`
	Status   *string           `json:"status"`
	Currency *string           `json:"currency"`
	Customer *TransactionPayer `json:"customer"`
}

// ParseWebhookEvent decodes a webhook body. An empty Reference is left for the caller to reject.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var p flatPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	event := &WebhookEvent{Event: deref(p.Event)}

	if p.TxRef == nil && len(p.Data) > 0 {
		var data envelopedPayload
		if err := json.Unmarshal(p.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		event.Reference = deref(data.TxRef)
		event.Status = deref(data.Status)
		event.Currency = deref(data.Currency)
		if c := data.Customer; c != nil {
			event.Customer = domain.Contact{
				Name:  deref(c.Name),
				Email: deref(c.Email),
				Phone: deref(c.PhoneNumber),
			}
		}
		return event, nil
	}

	event.Reference = deref(p.TxRef)
	event.Status = deref(p.Status)
	event.Currency = deref(p.Currency)
	if c := p.Customer; c != nil {
		event.Customer = domain.Contact{
			Name:  deref(c.FullName),
			Email: deref(c.Email),
			Phone: deref(c.Phone),
		}
	}
	return event, nil
}
