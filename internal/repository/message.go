package repository

import (
	"context"
	"time"

	"careops/backend/internal/db"

	"github.com/google/uuid"
)

// Message is one message in a conversation thread. Historical imports carry
// the Close activity id they were created from; close_activity_id is unique,
// which is what makes re-syncs idempotent.
type Message struct {
	ID              uuid.UUID `json:"id"`
	ThreadID        uuid.UUID `json:"thread_id"`
	CloseActivityID *string   `json:"close_activity_id,omitempty"`
	SenderType      string    `json:"sender_type"`
	Content         string    `json:"content"`
	MessageType     string    `json:"message_type"`
	SentAt          time.Time `json:"sent_at"`
	IsHistorical    bool      `json:"is_historical"`
	StaffName       *string   `json:"staff_name,omitempty"`
	StaffEmail      *string   `json:"staff_email,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreateMessageRequest holds parameters for creating a message
type CreateMessageRequest struct {
	ThreadID        uuid.UUID `json:"thread_id"`
	CloseActivityID *string   `json:"close_activity_id,omitempty"`
	SenderType      string    `json:"sender_type"`
	Content         string    `json:"content"`
	MessageType     string    `json:"message_type"`
	SentAt          time.Time `json:"sent_at"`
	IsHistorical    bool      `json:"is_historical"`
	StaffName       *string   `json:"staff_name,omitempty"`
	StaffEmail      *string   `json:"staff_email,omitempty"`
}

// MessageRepository handles message persistence
type MessageRepository struct {
	q Querier
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(q Querier) *MessageRepository {
	return &MessageRepository{q: q}
}

const messageColumns = `id, thread_id, close_activity_id, sender_type, content, message_type, sent_at, is_historical, staff_name, staff_email, created_at`

func scanMessage(row interface{ Scan(...any) error }) (*Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.ThreadID, &m.CloseActivityID, &m.SenderType, &m.Content, &m.MessageType, &m.SentAt, &m.IsHistorical, &m.StaffName, &m.StaffEmail, &m.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ExistsByCloseActivityID reports whether a message was already imported for
// this external activity. This is the sync pipeline's dedup check.
func (r *MessageRepository) ExistsByCloseActivityID(ctx context.Context, closeActivityID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM messages WHERE close_activity_id = $1)`,
		closeActivityID).Scan(&exists)
	return exists, err
}

// Create inserts a new message
func (r *MessageRepository) Create(ctx context.Context, req CreateMessageRequest) (*Message, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO messages (thread_id, close_activity_id, sender_type, content, message_type, sent_at, is_historical, staff_name, staff_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+messageColumns,
		req.ThreadID, req.CloseActivityID, req.SenderType, req.Content, req.MessageType,
		req.SentAt, req.IsHistorical, req.StaffName, req.StaffEmail)
	return scanMessage(row)
}

// ListByThread retrieves messages in a thread in send order
func (r *MessageRepository) ListByThread(ctx context.Context, threadID uuid.UUID, limit, offset int32) ([]Message, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE thread_id = $1
		ORDER BY sent_at
		LIMIT $2 OFFSET $3`, threadID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}
