package service

import (
	"crypto/sha256"
	"crypto/subtle"
)

// WebhookAuthenticator checks the shared-secret hash the processor sends with every webhook.
type WebhookAuthenticator struct {
	secretDigest [sha256.Size]byte
	compare      func(x, y []byte) int
}

// NewWebhookAuthenticator creates an authenticator for the configured secret hash.
func NewWebhookAuthenticator(secretHash string) *WebhookAuthenticator {
	return &WebhookAuthenticator{
		secretDigest: sha256.Sum256([]byte(secretHash)),
		compare:      subtle.ConstantTimeCompare,
	}
}

// Authenticate validates the received hash header value.
// Both sides are digested first so the comparison always runs over equal-length input.
func (a *WebhookAuthenticator) Authenticate(received string) error {
	if received == "" {
		return ErrMissingWebhookHash
	}

	got := sha256.Sum256([]byte(received))
	if a.compare(got[:], a.secretDigest[:]) != 1 {
		return ErrInvalidWebhookHash
	}

	return nil
}
