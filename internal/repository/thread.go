package repository

import (
	"context"
	"time"

	"careops/backend/internal/db"

	"github.com/google/uuid"
)

// ConversationThread groups messages between one end user and one staff
// member. At most one thread exists per (user_id, staff_contact_id) pair.
type ConversationThread struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	StaffContactID uuid.UUID  `json:"staff_contact_id"`
	Subject        string     `json:"subject"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty"`
	UnreadCount    int32      `json:"unread_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CreateThreadRequest holds parameters for creating a thread
type CreateThreadRequest struct {
	UserID         uuid.UUID  `json:"user_id"`
	StaffContactID uuid.UUID  `json:"staff_contact_id"`
	Subject        string     `json:"subject"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty"`
}

// ThreadRepository handles conversation thread persistence
type ThreadRepository struct {
	q Querier
}

// NewThreadRepository creates a new thread repository
func NewThreadRepository(q Querier) *ThreadRepository {
	return &ThreadRepository{q: q}
}

const threadColumns = `id, user_id, staff_contact_id, subject, last_message_at, unread_count, created_at, updated_at`

func scanThread(row interface{ Scan(...any) error }) (*ConversationThread, error) {
	var t ConversationThread
	err := row.Scan(&t.ID, &t.UserID, &t.StaffContactID, &t.Subject, &t.LastMessageAt, &t.UnreadCount, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// GetByID retrieves a thread by id
func (r *ThreadRepository) GetByID(ctx context.Context, id uuid.UUID) (*ConversationThread, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+threadColumns+`
		FROM conversation_threads
		WHERE id = $1`, id)
	return scanThread(row)
}

// GetByUserAndStaff retrieves the unique thread for a (user, staff) pair
func (r *ThreadRepository) GetByUserAndStaff(ctx context.Context, userID, staffContactID uuid.UUID) (*ConversationThread, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+threadColumns+`
		FROM conversation_threads
		WHERE user_id = $1 AND staff_contact_id = $2`, userID, staffContactID)
	return scanThread(row)
}

// Create inserts a new thread. The unique (user_id, staff_contact_id)
// constraint rejects a concurrent duplicate; callers re-read on
// IsUniqueViolation.
func (r *ThreadRepository) Create(ctx context.Context, req CreateThreadRequest) (*ConversationThread, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO conversation_threads (user_id, staff_contact_id, subject, last_message_at)
		VALUES ($1, $2, $3, $4)
		RETURNING `+threadColumns,
		req.UserID, req.StaffContactID, req.Subject, req.LastMessageAt)
	return scanThread(row)
}

// RecordMessage advances the thread's advisory display fields after a
// message append: last_message_at moves forward and the unread counter is
// bumped.
func (r *ThreadRepository) RecordMessage(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE conversation_threads
		SET last_message_at = GREATEST(COALESCE(last_message_at, $2), $2),
		    unread_count = unread_count + 1,
		    updated_at = now()
		WHERE id = $1`, id, sentAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// ListByUser retrieves all threads for a user, most recently active first
func (r *ThreadRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]ConversationThread, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+threadColumns+`
		FROM conversation_threads
		WHERE user_id = $1
		ORDER BY last_message_at DESC NULLS LAST`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []ConversationThread
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		threads = append(threads, *t)
	}
	return threads, rows.Err()
}
