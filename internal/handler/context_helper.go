package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-system-api/internal/middleware"
	"github.com/noah-isme/course-system-api/internal/models"
	appErrors "github.com/noah-isme/course-system-api/pkg/errors"
	"github.com/noah-isme/course-system-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// currentUser writes 401 and returns false when the request carries no claims.
func currentUser(c *gin.Context) (*models.User, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims.Actor(), true
}
