package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	jwtpkg "nclexkeys/backend/pkg/jwt"
	"nclexkeys/backend/pkg/response"
)

const ContextKeyUserClaims = "user_claims"

// JWTAuth accepts only access tokens presented as "Authorization: Bearer <token>".
func JWTAuth(jwtManager *jwtpkg.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			response.Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		claims, err := jwtManager.Validate(strings.TrimSpace(token))
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		if claims.TokenType != jwtpkg.TokenTypeAccess {
			response.Unauthorized(c, "invalid token type")
			c.Abort()
			return
		}

		c.Set(ContextKeyUserClaims, claims)
		c.Next()
	}
}

// Claims returns the claims JWTAuth stored on the context.
func Claims(c *gin.Context) (*jwtpkg.Claims, bool) {
	v, exists := c.Get(ContextKeyUserClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwtpkg.Claims)
	return claims, ok
}
