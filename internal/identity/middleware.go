package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type ctxKey string

const CtxIdentity ctxKey = "external_id"

// Middleware resolves the Authorization bearer credential to an external
// identity and stores it on the context for the handlers downstream.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
			return
		}
		tok := strings.TrimPrefix(h, "Bearer ")

		externalID, err := ParseToken(secret, tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}

		c.Set(string(CtxIdentity), externalID)
		c.Next()
	}
}

// MustIdentity returns the identity Middleware stored on the context. A
// handler only reaches this with the middleware mounted upstream; a missing
// identity means a wiring bug, so it panics instead of returning an empty
// identity that downstream lookups would misread as an unknown user.
func MustIdentity(c *gin.Context) string {
	if v, ok := c.Get(string(CtxIdentity)); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	panic("identity: MustIdentity called without Middleware")
}
