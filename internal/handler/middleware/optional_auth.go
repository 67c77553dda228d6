package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	jwtpkg "nclexkeys/backend/pkg/jwt"
)

// OptionalJWTAuth attaches claims when a valid access token is presented and
// otherwise lets the request through anonymously.
func OptionalJWTAuth(jwtManager *jwtpkg.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			if claims, err := jwtManager.Validate(strings.TrimSpace(token)); err == nil && claims.TokenType == jwtpkg.TokenTypeAccess {
				c.Set(ContextKeyUserClaims, claims)
			}
		}
		c.Next()
	}
}
