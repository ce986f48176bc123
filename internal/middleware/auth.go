package middleware

import (
	"net/http"
	"strings"

	"cardiopredict/internal/auth"
	"cardiopredict/internal/response"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID    = "userID"
	ContextFirstName = "firstName"
)

type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// AuthMiddleware requires "Authorization: Bearer <token>" and stores the
// caller in the context under ContextUserID and ContextFirstName.
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			response.Abort(c, http.StatusUnauthorized, "No token, authorization denied")
			return
		}

		claims, err := tokens.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "Token is not valid")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextFirstName, claims.FirstName)
		c.Next()
	}
}
