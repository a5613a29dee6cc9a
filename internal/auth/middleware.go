package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"careops/backend/internal/db"
	"careops/backend/internal/repository"

	"github.com/gin-gonic/gin"
)

// userContextKey is where the resolved user is stored on the gin context
const userContextKey = "current_user"

// UserResolver resolves a session token to a local user
type UserResolver interface {
	GetBySessionToken(ctx context.Context, token string) (*repository.AppUser, error)
}

// SessionMiddleware validates the bearer session token and attaches the
// owning user to the request context. Expired sessions resolve to no user.
func SessionMiddleware(users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NO_SESSION",
					"message": "No session",
				},
			})
			return
		}

		user, err := users.GetBySessionToken(c.Request.Context(), token)
		if err != nil {
			status := http.StatusInternalServerError
			code := "INTERNAL_ERROR"
			message := "Failed to resolve session"
			if errors.Is(err, db.ErrNotFound) {
				status = http.StatusUnauthorized
				code = "INVALID_SESSION"
				message = "User not authenticated"
			}
			c.AbortWithStatusJSON(status, gin.H{
				"success": false,
				"error": gin.H{
					"code":    code,
					"message": message,
				},
			})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user attached by SessionMiddleware
func CurrentUser(c *gin.Context) (*repository.AppUser, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*repository.AppUser)
	return user, ok
}

func bearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
