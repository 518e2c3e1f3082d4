package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/internship-attendance-api/internal/models"
	appErrors "github.com/noah-isme/internship-attendance-api/pkg/errors"
	"github.com/noah-isme/internship-attendance-api/pkg/response"
)

// SelfParam lets a student through when the named route parameter equals
// their own student ID.
type SelfParam string

// RequireRoles admits callers holding one of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return RBAC("", roles...)
}

// RBAC admits callers holding one of roles, or students addressing
// themselves through self when it is non-empty.
func RBAC(self SelfParam, roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}

		if self != "" && claims.Role == models.RoleStudent {
			if target := c.Param(string(self)); target != "" && target == claims.StudentID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
