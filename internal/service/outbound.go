package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"careops/backend/internal/classify"
	"careops/backend/internal/closecrm"
	"careops/backend/internal/logger"
	"careops/backend/internal/repository"

	"github.com/google/uuid"
)

// ErrThreadForbidden is returned when a user sends into a thread they do not own
var ErrThreadForbidden = errors.New("thread does not belong to user")

// SendMessageRequest holds parameters for an outbound send
type SendMessageRequest struct {
	ThreadID       uuid.UUID
	Content        string
	RecipientEmail string
	Subject        string
}

// SendResult pairs the persisted message with the Close activity it created
type SendResult struct {
	Message     *repository.Message `json:"message"`
	CloseResult *closecrm.Activity  `json:"close_result"`
}

// OutboundService sends live messages through Close and records them locally
type OutboundService struct {
	client   CloseClient
	threads  ThreadStore
	messages MessageStore
}

// NewOutboundService creates a new outbound service
func NewOutboundService(client CloseClient, threads ThreadStore, messages MessageStore) *OutboundService {
	return &OutboundService{client: client, threads: threads, messages: messages}
}

// SendMessage sends an email via Close on behalf of the user and persists a
// live message on the thread. The Close send happens first; a send that
// succeeds but fails to persist still surfaces the error so the caller can
// reconcile against the next sync.
func (s *OutboundService) SendMessage(ctx context.Context, user *repository.AppUser, req SendMessageRequest) (*SendResult, error) {
	thread, err := s.threads.GetByID(ctx, req.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	if thread.UserID != user.ID {
		return nil, ErrThreadForbidden
	}

	subject := req.Subject
	if subject == "" {
		subject = thread.Subject
	}

	activity, err := s.client.SendEmail(ctx, closecrm.EmailRequest{
		To:       []string{req.RecipientEmail},
		Subject:  subject,
		BodyText: req.Content,
	})
	if err != nil {
		return nil, fmt.Errorf("send email via Close: %w", err)
	}

	sentAt := activity.DateCreated
	if sentAt.IsZero() {
		sentAt = time.Now()
	}

	msgReq := repository.CreateMessageRequest{
		ThreadID:     thread.ID,
		SenderType:   string(classify.SenderUser),
		Content:      req.Content,
		MessageType:  string(classify.TypeEmail),
		SentAt:       sentAt,
		IsHistorical: false,
	}
	if activity.ID != "" {
		activityID := activity.ID
		msgReq.CloseActivityID = &activityID
	}

	message, err := s.messages.Create(ctx, msgReq)
	if err != nil {
		return nil, fmt.Errorf("persist sent message: %w", err)
	}

	if err := s.threads.RecordMessage(ctx, thread.ID, sentAt); err != nil {
		logger.Warn().
			Err(err).
			Str("thread_id", thread.ID.String()).
			Msg("failed to advance thread display fields")
	}

	logger.Info().
		Str("thread_id", thread.ID.String()).
		Str("close_activity_id", activity.ID).
		Msg("outbound message sent")

	return &SendResult{Message: message, CloseResult: activity}, nil
}
