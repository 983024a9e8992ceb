package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const identityKey = "auth.identity"

// RequireUser rejects requests without a valid bearer token.
func RequireUser(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := bearerIdentity(tokens, c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "authorization token required",
			})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// OptionalUser attaches an identity when a valid token is present and lets
// anonymous requests through untouched. Used where identity is genuinely
// optional (share recording), instead of catching auth failures.
func OptionalUser(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, ok := bearerIdentity(tokens, c); ok {
			c.Set(identityKey, id)
		}
		c.Next()
	}
}

// UserFrom returns the authenticated identity, if any.
func UserFrom(c *gin.Context) (*Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*Identity)
	return id, ok
}

func bearerIdentity(tokens *Tokens, c *gin.Context) (*Identity, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, false
	}
	id, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return nil, false
	}
	return id, true
}
