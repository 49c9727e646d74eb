package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/focuskid/guardian-api/internal/models"
	appErrors "github.com/focuskid/guardian-api/pkg/errors"
	"github.com/focuskid/guardian-api/pkg/response"
)

// RequireCapability admits callers whose claims carry at least one of the
// listed capabilities. Users hold a set of capabilities rather than a
// single role, so a guardian who also teaches passes either check. The
// pseudo-capability "SELF" admits a caller whose id matches the :id path
// parameter.
func RequireCapability(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		allowSelf := false
		for _, a := range allowed {
			if a == "SELF" {
				allowSelf = true
				continue
			}
			if claims.HasRole(models.RoleType(a)) {
				c.Next()
				return
			}
		}

		if allowSelf {
			if targetID := c.Param("id"); targetID != "" && targetID == claims.UserID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts typed capabilities.
func RequireRoles(roles ...models.RoleType) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RequireCapability(allowed...)
}
