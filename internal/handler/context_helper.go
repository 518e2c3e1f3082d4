package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/internship-attendance-api/internal/middleware"
	"github.com/noah-isme/internship-attendance-api/internal/models"
	appErrors "github.com/noah-isme/internship-attendance-api/pkg/errors"
	"github.com/noah-isme/internship-attendance-api/pkg/response"
)

// claimsFromContext returns the caller or writes 401 and returns nil.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil
	}
	return claims
}

// studentFromContext resolves the student the caller acts for.
func studentFromContext(c *gin.Context) (string, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		return "", false
	}
	if claims.Role != models.RoleStudent || claims.StudentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "only student accounts may use this endpoint"))
		return "", false
	}
	return claims.StudentID, true
}

func bindError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body")
}
