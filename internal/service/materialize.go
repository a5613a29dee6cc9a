package service

import (
	"context"
	"errors"
	"fmt"

	"careops/backend/internal/classify"
	"careops/backend/internal/closecrm"
	"careops/backend/internal/db"
	"careops/backend/internal/repository"

	"github.com/google/uuid"
)

// Materializer lazily creates the local staff contact and conversation
// thread rows that imported activities hang off. All operations are
// check-then-create and tolerate the benign race where a concurrent sync
// run wins the insert: the loser re-reads and uses the winner's row.
type Materializer struct {
	staff   StaffContactStore
	threads ThreadStore
}

// NewMaterializer creates a new materializer
func NewMaterializer(staff StaffContactStore, threads ThreadStore) *Materializer {
	return &Materializer{staff: staff, threads: threads}
}

// EnsureStaffContact returns the local staff contact for a Close user id,
// creating it from directory metadata on first encounter.
func (m *Materializer) EnsureStaffContact(ctx context.Context, closeUserID string, directory map[string]closecrm.User) (*repository.StaffContact, error) {
	if closeUserID == "" {
		return nil, fmt.Errorf("activity has no acting user id")
	}

	existing, err := m.staff.GetByCloseUserID(ctx, closeUserID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	user, ok := directory[closeUserID]
	if !ok {
		return nil, fmt.Errorf("close user %s not in directory", closeUserID)
	}

	req := repository.CreateStaffContactRequest{
		CloseUserID: closeUserID,
		Name:        user.Name(),
	}
	if user.Email != "" {
		email := user.Email
		req.Email = &email
	}

	created, err := m.staff.Create(ctx, req)
	if err != nil {
		// A concurrent run inserted the same close_user_id first; their
		// row is canonical.
		if repository.IsUniqueViolation(err) {
			return m.staff.GetByCloseUserID(ctx, closeUserID)
		}
		return nil, err
	}
	return created, nil
}

// EnsureThread returns the unique thread for a (user, staff) pair, creating
// it on first activity between that pair. New threads take a
// type-appropriate default subject and seed last_message_at from the
// triggering activity.
func (m *Materializer) EnsureThread(ctx context.Context, userID, staffContactID uuid.UUID, msgType classify.MessageType, activity closecrm.Activity) (*repository.ConversationThread, error) {
	existing, err := m.threads.GetByUserAndStaff(ctx, userID, staffContactID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	req := repository.CreateThreadRequest{
		UserID:         userID,
		StaffContactID: staffContactID,
		Subject:        classify.DefaultSubject(msgType, activity),
	}
	if !activity.DateCreated.IsZero() {
		seededAt := activity.DateCreated
		req.LastMessageAt = &seededAt
	}

	created, err := m.threads.Create(ctx, req)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return m.threads.GetByUserAndStaff(ctx, userID, staffContactID)
		}
		return nil, err
	}
	return created, nil
}
