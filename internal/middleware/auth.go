package middleware

import (
	"net/http"
	"strings"

	"github.com/epeers/mftracker/internal/models"
	"github.com/gin-gonic/gin"
)

const TokenKey = "bearer_token"

// ExtractToken stores the caller's bearer token, if any, for forwarding to the
// backend. The token is not verified here; the backend owns authentication.
func ExtractToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			c.Next()
			return
		}

		token = strings.TrimSpace(token)
		if token != "" {
			c.Set(TokenKey, token)
		}
		c.Next()
	}
}

// GetToken retrieves the bearer token from the context
func GetToken(c *gin.Context) (string, bool) {
	token, exists := c.Get(TokenKey)
	if !exists {
		return "", false
	}
	return token.(string), true
}

// RequireToken rejects requests without a bearer token
func RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := GetToken(c); !exists {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "unauthorized",
				Message: "bearer token required",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
