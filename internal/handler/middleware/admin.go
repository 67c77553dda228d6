package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nclexkeys/backend/pkg/response"
)

// RequireRoles lets through users whose token carries one of roles.
// Must be used after JWTAuth middleware.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Unauthorized(c, "missing authentication")
			c.Abort()
			return
		}

		if _, err := uuid.Parse(claims.Subject); err != nil {
			response.Unauthorized(c, "invalid user id")
			c.Abort()
			return
		}

		if _, permitted := allowed[claims.Role]; !permitted {
			response.Forbidden(c, "staff access required")
			c.Abort()
			return
		}

		c.Next()
	}
}
