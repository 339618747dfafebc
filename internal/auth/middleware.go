package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fieldserve/fieldserve/internal/tenant"
)

// RequireAuth validates the Bearer token and rejects tokens issued for
// a different tenant than the one the request resolved to.
func RequireAuth(manager *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		claims, err := manager.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		if t, ok := tenant.FromContext(c.Request.Context()); ok && claims.Schema != t.SchemaName {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token_tenant_mismatch"})
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}
		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), &Principal{
			UserID: userID,
			Email:  claims.Email,
			Schema: claims.Schema,
		}))
		c.Next()
	}
}

// RequireAdminSecret guards operator routes with a shared secret
// header. An empty configured secret closes the routes entirely.
func RequireAdminSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		given := c.GetHeader("X-Admin-Secret")
		if secret == "" ||
			subtle.ConstantTimeCompare([]byte(given), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
