package delivery

import (
	"errors"
	"net/http"
	"strings"

	authdomain "nexus-backend/internal/auth/domain"
	"nexus-backend/internal/auth/usecase"

	"github.com/gin-gonic/gin"
)

var (
	errMissingAuth = errors.New("authorization header required")
	errBadScheme   = errors.New("invalid authorization header format")
)

// bearerToken extracts the token from "Authorization: Bearer <token>"
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingAuth
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errBadScheme
	}
	return token, nil
}

func AuthMiddleware(authUsecase usecase.AuthUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		user, err := authUsecase.ValidateToken(token)
		if err != nil || user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set("user", user)
		c.Set("userID", user.ID)
		// Tool handlers resolve the caller from the request context
		c.Request = c.Request.WithContext(authdomain.WithUserID(c.Request.Context(), user.ID))
		c.Next()
	}
}
