package middleware

import (
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/matchvault/backend/pkg/response"
)

// RequireRole admits callers whose role, set by JWT or AdminOrAPIKey, is one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextUserRole)
		if role == "" {
			response.Unauthorized(c, "missing caller role")
			c.Abort()
			return
		}
		if !slices.Contains(roles, role) {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
