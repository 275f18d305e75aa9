// Package middleware provides HTTP middleware for the presentation layer.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gingerol/examguard/internal/application/services"
	"github.com/gingerol/examguard/internal/infrastructure/security"
)

const identityKey = "examguard:identity"

// ParticipantAuthMiddleware requires a valid bearer token on every
// session-mutating call and stores the resolved identity in the context.
func ParticipantAuthMiddleware(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		identity, err := auth.IdentityFromToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// ElevatedOnlyMiddleware additionally requires an elevated role. Must run
// after ParticipantAuthMiddleware.
func ElevatedOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok || !identity.Elevated() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "elevated role required"})
			return
		}
		c.Next()
	}
}

// GetIdentity returns the authenticated identity stored by the middleware.
func GetIdentity(c *gin.Context) (*security.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*security.Identity)
	return identity, ok
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.HasPrefix(authHeader, "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
