package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	apiKeyHeader = "X-API-Key"
	apiKeyScheme = "Api-Key "
)

// APIKeyMiddleware admits requests carrying one of keys, either as
// "Authorization: Api-Key <key>" or in the X-API-Key header.
// With no keys configured every request is admitted.
func APIKeyMiddleware(keys []string) gin.HandlerFunc {
	digests := make([][sha256.Size]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			digests = append(digests, sha256.Sum256([]byte(k)))
		}
	}

	return func(c *gin.Context) {
		if len(digests) == 0 {
			c.Next()
			return
		}

		presented := presentedAPIKey(c.Request)
		if presented == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication Error",
				"message": "API key required",
			})
			return
		}

		got := sha256.Sum256([]byte(presented))
		match := 0
		for i := range digests {
			match |= subtle.ConstantTimeCompare(got[:], digests[i][:])
		}
		if match != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "Authentication Error",
				"message": "invalid API key",
			})
			return
		}

		c.Next()
	}
}

func presentedAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, apiKeyScheme) {
		return strings.TrimSpace(strings.TrimPrefix(auth, apiKeyScheme))
	}
	return strings.TrimSpace(r.Header.Get(apiKeyHeader))
}
