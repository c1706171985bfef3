package middleware

import (
	"net/http"
	"strings"

	"purchase-prediction-api/services"

	"github.com/gin-gonic/gin"
)

const ClaimsKey = "claims"

// RequireAuth checks the bearer token on every request. When enabled is
// false the dashboard is open and the check is skipped.
func RequireAuth(authService *services.AuthService, enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
