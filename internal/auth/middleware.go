package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	raw := strings.TrimSpace(header)
	if !strings.HasPrefix(raw, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix))
}

// RequireAccessToken authenticates the bearer token and injects the identity
// into the request context. It does not perform permission checks; those
// belong to internal/rbac.
func RequireAccessToken(g *Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := BearerToken(c.GetHeader(authorizationHeader))
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		id, err := g.Authenticate(c.Request.Context(), tok)
		if err != nil {
			if errors.Is(err, ErrRevocationUnavailable) {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable"})
				return
			}
			// Never say why: the body is the same for every rejection.
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))

		// Also store on gin context for handler convenience.
		c.Set("subject_id", id.SubjectID)
		c.Set("session_id", id.SessionID)
		c.Set("role", id.Role)

		c.Next()
	}
}
