package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/inventory-report-api/internal/models"
	"github.com/noah-isme/inventory-report-api/internal/repository"
	appErrors "github.com/noah-isme/inventory-report-api/pkg/errors"
	"github.com/noah-isme/inventory-report-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid access token.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		token, ok := bearerToken(header)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		forwardAuthorization(c, header)
		c.Next()
	}
}

// OptionalJWT attaches claims when present but does not block.
func OptionalJWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		forwardAuthorization(c, header)

		token, ok := bearerToken(header)
		if !ok || validator == nil {
			c.Next()
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			c.Next()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// Auth picks JWT or OptionalJWT depending on whether authentication is enforced.
func Auth(validator TokenValidator, enforced bool) gin.HandlerFunc {
	if enforced {
		return JWT(validator)
	}
	return OptionalJWT(validator)
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// forwardAuthorization makes the caller's header available to provider calls.
func forwardAuthorization(c *gin.Context, header string) {
	c.Request = c.Request.WithContext(repository.WithAuthorization(c.Request.Context(), header))
}
