// Package service implements the Close history pipeline: contact
// resolution, the activity fetch cascade, classification-driven import with
// staff/thread materialization, the live lookup variant, directory sync,
// and outbound sends. Services consume narrow interfaces over the Close
// client and repositories so each piece is testable without a database.
package service

import (
	"context"
	"time"

	"careops/backend/internal/closecrm"
	"careops/backend/internal/repository"
	"careops/backend/internal/resolver"

	"github.com/google/uuid"
)

// CloseClient is the slice of the Close API the services use
type CloseClient interface {
	SearchContacts(ctx context.Context, query string) ([]closecrm.Contact, error)
	ListUsers(ctx context.Context) ([]closecrm.User, error)
	ListActivities(ctx context.Context, filter closecrm.ActivityFilter) ([]closecrm.Activity, error)
	SendEmail(ctx context.Context, req closecrm.EmailRequest) (*closecrm.Activity, error)
}

// ContactResolver resolves local identifiers to Close contacts
type ContactResolver interface {
	ResolveExact(ctx context.Context, email string) (*resolver.Match, error)
	ResolveTrusted(ctx context.Context, email, phone string) (*resolver.Match, error)
}

// StaffContactStore is the staff contact persistence surface
type StaffContactStore interface {
	GetByCloseUserID(ctx context.Context, closeUserID string) (*repository.StaffContact, error)
	GetByID(ctx context.Context, id uuid.UUID) (*repository.StaffContact, error)
	Create(ctx context.Context, req repository.CreateStaffContactRequest) (*repository.StaffContact, error)
	UpsertByCloseUserID(ctx context.Context, req repository.CreateStaffContactRequest) (*repository.StaffContact, error)
}

// ThreadStore is the conversation thread persistence surface
type ThreadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*repository.ConversationThread, error)
	GetByUserAndStaff(ctx context.Context, userID, staffContactID uuid.UUID) (*repository.ConversationThread, error)
	Create(ctx context.Context, req repository.CreateThreadRequest) (*repository.ConversationThread, error)
	RecordMessage(ctx context.Context, id uuid.UUID, sentAt time.Time) error
}

// MessageStore is the message persistence surface
type MessageStore interface {
	ExistsByCloseActivityID(ctx context.Context, closeActivityID string) (bool, error)
	Create(ctx context.Context, req repository.CreateMessageRequest) (*repository.Message, error)
}

// SyncStatusStore is the sync status and audit persistence surface
type SyncStatusStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*repository.UserSyncStatus, error)
	Set(ctx context.Context, userID uuid.UUID, status repository.SyncStatus) (*repository.UserSyncStatus, error)
	MarkCompleted(ctx context.Context, userID uuid.UUID, syncedAt time.Time) (*repository.UserSyncStatus, error)
	StartRun(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	CompleteRun(ctx context.Context, runID uuid.UUID, result repository.CompleteRunResult) error
}
