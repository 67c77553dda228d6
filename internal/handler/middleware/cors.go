package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"nclexkeys/backend/internal/config"
)

func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	c := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
	}
	if len(cfg.AllowedMethods) > 0 {
		c.AllowMethods = cfg.AllowedMethods
	}
	if len(cfg.AllowedHeaders) > 0 {
		c.AllowHeaders = cfg.AllowedHeaders
	} else {
		c.AddAllowHeaders("Authorization")
	}
	// Credentials cannot be combined with a wildcard origin.
	c.AllowCredentials = cfg.AllowCredentials && !c.AllowAllOrigins
	if cfg.MaxAge > 0 {
		c.MaxAge = cfg.MaxAge
	}
	return cors.New(c)
}
