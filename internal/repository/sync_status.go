package repository

import (
	"context"
	"encoding/json"
	"time"

	"careops/backend/internal/db"

	"github.com/google/uuid"
)

// SyncStatus is the per-user history sync state. "pending" is implicit: a
// user with no row is pending.
type SyncStatus string

const (
	SyncStatusPending        SyncStatus = "pending"
	SyncStatusInProgress     SyncStatus = "in_progress"
	SyncStatusCompleted      SyncStatus = "completed"
	SyncStatusError          SyncStatus = "error"
	SyncStatusNoContactFound SyncStatus = "no_contact_found"
)

// DisplayLabel returns the human-readable banner text for a status
func (s SyncStatus) DisplayLabel() string {
	switch s {
	case SyncStatusCompleted:
		return "History synced"
	case SyncStatusInProgress:
		return "Syncing history..."
	case SyncStatusError:
		return "Sync failed"
	case SyncStatusNoContactFound:
		return "No matching contact found"
	default:
		return ""
	}
}

// UserSyncStatus is the single authoritative status row for one user,
// overwritten in place on every transition. Last-writer-wins; run history
// lives in sync_runs.
type UserSyncStatus struct {
	UserID       uuid.UUID  `json:"user_id"`
	Status       SyncStatus `json:"status"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// SyncRun is one append-only audit entry for a sync attempt
type SyncRun struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Status          string     `json:"status"`
	ImportedCount   int32      `json:"imported_count"`
	SkippedCount    int32      `json:"skipped_count"`
	TotalActivities int32      `json:"total_activities"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
	Notes           []string   `json:"notes,omitempty"`
}

// SyncStatusRepository handles sync status and run audit persistence
type SyncStatusRepository struct {
	q Querier
}

// NewSyncStatusRepository creates a new sync status repository
func NewSyncStatusRepository(q Querier) *SyncStatusRepository {
	return &SyncStatusRepository{q: q}
}

// Get retrieves the current status row for a user; db.ErrNotFound means the
// user has never synced (implicit pending).
func (r *SyncStatusRepository) Get(ctx context.Context, userID uuid.UUID) (*UserSyncStatus, error) {
	row := r.q.QueryRow(ctx, `
		SELECT user_id, status, last_synced_at, updated_at
		FROM user_sync_status
		WHERE user_id = $1`, userID)

	var s UserSyncStatus
	if err := row.Scan(&s.UserID, &s.Status, &s.LastSyncedAt, &s.UpdatedAt); err != nil {
		if isNoRows(err) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Set overwrites the user's status row in place
func (r *SyncStatusRepository) Set(ctx context.Context, userID uuid.UUID, status SyncStatus) (*UserSyncStatus, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO user_sync_status (user_id, status, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = now()
		RETURNING user_id, status, last_synced_at, updated_at`,
		userID, status)

	var s UserSyncStatus
	if err := row.Scan(&s.UserID, &s.Status, &s.LastSyncedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// MarkCompleted sets the status to completed and stamps last_synced_at
func (r *SyncStatusRepository) MarkCompleted(ctx context.Context, userID uuid.UUID, syncedAt time.Time) (*UserSyncStatus, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO user_sync_status (user_id, status, last_synced_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id) DO UPDATE SET
			status = EXCLUDED.status,
			last_synced_at = EXCLUDED.last_synced_at,
			updated_at = now()
		RETURNING user_id, status, last_synced_at, updated_at`,
		userID, SyncStatusCompleted, syncedAt)

	var s UserSyncStatus
	if err := row.Scan(&s.UserID, &s.Status, &s.LastSyncedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// StartRun appends a new audit entry for a sync attempt
func (r *SyncStatusRepository) StartRun(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.q.QueryRow(ctx, `
		INSERT INTO sync_runs (user_id)
		VALUES ($1)
		RETURNING id`, userID).Scan(&id)
	return id, err
}

// CompleteRunResult carries the outcome recorded on a sync run
type CompleteRunResult struct {
	Status          string
	ImportedCount   int32
	SkippedCount    int32
	TotalActivities int32
	ErrorMessage    *string
	Notes           []string
}

// CompleteRun closes out an audit entry
func (r *SyncStatusRepository) CompleteRun(ctx context.Context, runID uuid.UUID, result CompleteRunResult) error {
	var notes []byte
	if len(result.Notes) > 0 {
		var err error
		notes, err = json.Marshal(result.Notes)
		if err != nil {
			return err
		}
	}

	tag, err := r.q.Exec(ctx, `
		UPDATE sync_runs
		SET completed_at = now(),
		    status = $2,
		    imported_count = $3,
		    skipped_count = $4,
		    total_activities = $5,
		    error_message = $6,
		    notes = $7
		WHERE id = $1`,
		runID, result.Status, result.ImportedCount, result.SkippedCount,
		result.TotalActivities, result.ErrorMessage, notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// ListRecentRuns retrieves the most recent sync runs for a user
func (r *SyncStatusRepository) ListRecentRuns(ctx context.Context, userID uuid.UUID, limit int32) ([]SyncRun, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, user_id, started_at, completed_at, status, imported_count, skipped_count, total_activities, error_message, notes
		FROM sync_runs
		WHERE user_id = $1
		ORDER BY started_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []SyncRun
	for rows.Next() {
		var run SyncRun
		var notes []byte
		if err := rows.Scan(&run.ID, &run.UserID, &run.StartedAt, &run.CompletedAt, &run.Status,
			&run.ImportedCount, &run.SkippedCount, &run.TotalActivities, &run.ErrorMessage, &notes); err != nil {
			return nil, err
		}
		if len(notes) > 0 {
			_ = json.Unmarshal(notes, &run.Notes)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
