package handlers

import (
	"errors"
	"net/http"

	"careops/backend/internal/api"
	"careops/backend/internal/auth"
	"careops/backend/internal/db"
	"careops/backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// MessageHandler handles outbound message HTTP requests
type MessageHandler struct {
	outbound  *service.OutboundService
	validator *validator.Validate
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(outbound *service.OutboundService) *MessageHandler {
	return &MessageHandler{
		outbound:  outbound,
		validator: validator.New(),
	}
}

// SendMessageRequest represents the request body for sending a message
type SendMessageRequest struct {
	ThreadID       string `json:"thread_id" validate:"required,uuid"`
	Content        string `json:"content" validate:"required"`
	RecipientEmail string `json:"recipient_email" validate:"required,email"`
	Subject        string `json:"subject,omitempty"`
}

// SendMessage sends an email through the CRM on behalf of the user and
// records it on the thread
func (h *MessageHandler) SendMessage(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		api.SendUnauthorized(c, "User not authenticated")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		api.SendValidationError(c, "Validation failed", err.Error())
		return
	}

	threadID, err := uuid.Parse(req.ThreadID)
	if err != nil {
		api.SendBadRequest(c, "Invalid thread id")
		return
	}

	result, err := h.outbound.SendMessage(c.Request.Context(), user, service.SendMessageRequest{
		ThreadID:       threadID,
		Content:        req.Content,
		RecipientEmail: req.RecipientEmail,
		Subject:        req.Subject,
	})
	if err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			api.SendNotFound(c, "Thread")
		case errors.Is(err, service.ErrThreadForbidden):
			api.SendForbidden(c, "Thread belongs to another user")
		default:
			api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to send message", err.Error())
		}
		return
	}

	api.SendSuccess(c, http.StatusOK, gin.H{
		"message":      result.Message,
		"close_result": result.CloseResult,
	})
}
