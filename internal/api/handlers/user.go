package handlers

import (
	"context"
	"errors"
	"net/http"

	"careops/backend/internal/api"
	"careops/backend/internal/auth"
	"careops/backend/internal/db"
	"careops/backend/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserReader loads app users by id
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*repository.AppUser, error)
}

// UserHandler serves the authenticated user's own profile
type UserHandler struct {
	users UserReader
}

// NewUserHandler creates a new user handler
func NewUserHandler(users UserReader) *UserHandler {
	return &UserHandler{users: users}
}

// Me returns a fresh read of the authenticated user's profile
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		api.SendUnauthorized(c, "User not authenticated")
		return
	}

	fresh, err := h.users.GetByID(c.Request.Context(), user.ID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			api.SendNotFound(c, "User")
			return
		}
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to load profile", err.Error())
		return
	}

	api.SendSuccess(c, http.StatusOK, fresh)
}
