package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/matchvault/backend/internal/auth"
	"github.com/matchvault/backend/pkg/response"
	"github.com/matchvault/backend/pkg/utils"
)

// HeaderAPIKey carries the static sync API key.
const HeaderAPIKey = "X-API-Key"

// AdminOrAPIKey admits callers presenting the sync API key (checked against its bcrypt hash)
// or a bearer token with the admin role. An empty keyHash disables the API key path.
func AdminOrAPIKey(keyHash string, validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader(HeaderAPIKey); key != "" {
			if keyHash == "" || !utils.CheckSecret(key, keyHash) {
				response.Unauthorized(c, "invalid api key")
				c.Abort()
				return
			}
			c.Set(ContextCaller, "api_key")
			c.Set(ContextUserRole, auth.RoleAdmin)
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing api key or authorization header")
			c.Abort()
			return
		}
		claims, ok := bearerClaims(validator, header)
		if !ok {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		if claims.Role != auth.RoleAdmin {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}
