package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"careops/backend/internal/api"
	"careops/backend/internal/auth"
	"careops/backend/internal/db"
	"careops/backend/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ThreadReader lists conversation threads
type ThreadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*repository.ConversationThread, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]repository.ConversationThread, error)
}

// MessageReader lists messages on a thread
type MessageReader interface {
	ListByThread(ctx context.Context, threadID uuid.UUID, limit, offset int32) ([]repository.Message, error)
}

// ThreadHandler serves the dashboard's conversation views
type ThreadHandler struct {
	threads  ThreadReader
	messages MessageReader
}

// NewThreadHandler creates a new thread handler
func NewThreadHandler(threads ThreadReader, messages MessageReader) *ThreadHandler {
	return &ThreadHandler{threads: threads, messages: messages}
}

// ListThreads returns the authenticated user's conversation threads
func (h *ThreadHandler) ListThreads(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		api.SendUnauthorized(c, "User not authenticated")
		return
	}

	threads, err := h.threads.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to list threads", err.Error())
		return
	}

	api.SendSuccess(c, http.StatusOK, gin.H{"threads": threads})
}

// ListMessages returns messages on one of the user's threads, oldest first
func (h *ThreadHandler) ListMessages(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		api.SendUnauthorized(c, "User not authenticated")
		return
	}

	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		api.SendBadRequest(c, "Invalid thread id")
		return
	}

	thread, err := h.threads.GetByID(c.Request.Context(), threadID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			api.SendNotFound(c, "Thread")
			return
		}
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to load thread", err.Error())
		return
	}
	if thread.UserID != user.ID {
		api.SendForbidden(c, "Thread belongs to another user")
		return
	}

	limit := queryInt32(c, "limit", 100)
	offset := queryInt32(c, "offset", 0)

	messages, err := h.messages.ListByThread(c.Request.Context(), threadID, limit, offset)
	if err != nil {
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to list messages", err.Error())
		return
	}

	api.SendSuccess(c, http.StatusOK, gin.H{
		"thread":   thread,
		"messages": messages,
	})
}

func queryInt32(c *gin.Context, name string, fallback int32) int32 {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || v < 0 {
		return fallback
	}
	return int32(v)
}
