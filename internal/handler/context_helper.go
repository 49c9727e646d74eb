package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/focuskid/guardian-api/internal/middleware"
	"github.com/focuskid/guardian-api/internal/models"
)

// claimsFromContext pulls the authenticated user's claims out of the
// gin context. Nil means the JWT middleware did not run or rejected the
// request.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil
	}
	if claims, ok := value.(*models.JWTClaims); ok {
		return claims
	}
	return nil
}
