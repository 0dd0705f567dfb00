package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SecretHeader carries the shared admission secret on inbound triggers.
const SecretHeader = "X-Admission-Secret"

// SecretMiddleware gates every request behind the shared admission secret.
// The comparison is constant-time so response latency leaks nothing about
// how much of the secret matched. A denial is a policy decision: the request
// must not reach the ledger, the orchestrator, or the publisher.
func SecretMiddleware(secret string) gin.HandlerFunc {
	want := []byte(secret)
	return func(c *gin.Context) {
		got := []byte(strings.TrimSpace(c.GetHeader(SecretHeader)))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
