package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebhookAuthenticator(t *testing.T) {
	auth := NewWebhookAuthenticator("s3cret-hash")

	assert.ErrorIs(t, auth.Authenticate(""), ErrMissingWebhookHash)
	assert.ErrorIs(t, auth.Authenticate("wrong"), ErrInvalidWebhookHash)
	assert.ErrorIs(t, auth.Authenticate("s3cret-has"), ErrInvalidWebhookHash)
	assert.NoError(t, auth.Authenticate("s3cret-hash"))
}

// The comparison must see equal-length input whatever the caller sends,
// so its running time cannot leak the secret's length or a matching prefix.
func TestWebhookAuthenticator_ComparesFixedLengthDigests(t *testing.T) {
	auth := NewWebhookAuthenticator("s3cret-hash")

	var lengths [][2]int
	inner := auth.compare
	auth.compare = func(x, y []byte) int {
		lengths = append(lengths, [2]int{len(x), len(y)})
		return inner(x, y)
	}

	inputs := []string{"s", "s3cret", "s3cret-hash", "s3cret-hash-and-more", strings.Repeat("x", 4096)}
	for _, in := range inputs {
		_ = auth.Authenticate(in)
	}

	assert.Len(t, lengths, len(inputs))
	for _, l := range lengths {
		assert.Equal(t, [2]int{32, 32}, l)
	}
}
