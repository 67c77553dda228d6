package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nclexkeys/backend/internal/handler/middleware"
)

var ErrNoClaims = errors.New("claims not found in context")

func getUserIDFromContext(c *gin.Context) (uuid.UUID, error) {
	claims, ok := middleware.Claims(c)
	if !ok {
		return uuid.Nil, ErrNoClaims
	}
	return uuid.Parse(claims.Subject)
}

// optionalUserID is the caller's id when the request carried a valid access token.
func optionalUserID(c *gin.Context) *uuid.UUID {
	id, err := getUserIDFromContext(c)
	if err != nil {
		return nil
	}
	return &id
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}
