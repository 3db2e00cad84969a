package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/inventory-report-api/internal/middleware"
	"github.com/noah-isme/inventory-report-api/internal/models"
)

// principalFromContext names the authenticated caller, or "" for anonymous requests.
func principalFromContext(c *gin.Context) string {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return ""
	}
	if claims, ok := value.(*models.JWTClaims); ok && claims != nil {
		return claims.Principal()
	}
	return ""
}
