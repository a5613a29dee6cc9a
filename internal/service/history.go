package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"careops/backend/internal/classify"
	"careops/backend/internal/closecrm"
	"careops/backend/internal/config"
	"careops/backend/internal/db"
	"careops/backend/internal/logger"
	"careops/backend/internal/repository"
	"careops/backend/internal/resolver"

	"github.com/google/uuid"
)

// maxDiagnostics bounds the per-activity outcome sample returned to the caller
const maxDiagnostics = 20

// SyncReport is the outcome of one sync invocation
type SyncReport struct {
	ShortCircuited  bool                       `json:"-"`
	Success         bool                       `json:"success"`
	Message         string                     `json:"message"`
	SyncStatus      *repository.UserSyncStatus `json:"sync_status,omitempty"`
	ImportedCount   int                        `json:"imported_count"`
	SkippedCount    int                        `json:"skipped_count"`
	TotalActivities int                        `json:"total_activities"`
	CloseContactID  string                     `json:"close_contact_id,omitempty"`
	Strategy        string                     `json:"strategy,omitempty"`
	SearchCriteria  string                     `json:"search_criteria,omitempty"`
	Suggestion      string                     `json:"suggestion,omitempty"`
	Notes           []string                   `json:"notes,omitempty"`
}

// HistorySyncService coordinates the end-to-end history sync for one user:
// status gating, contact resolution, the activity fetch cascade,
// classification, materialization, and idempotent message import.
type HistorySyncService struct {
	client   CloseClient
	resolver ContactResolver
	status   SyncStatusStore
	threads  ThreadStore
	messages MessageStore
	mat      *Materializer
	cfg      config.SyncConfig
}

// NewHistorySyncService creates a new history sync service
func NewHistorySyncService(
	client CloseClient,
	contactResolver ContactResolver,
	status SyncStatusStore,
	staff StaffContactStore,
	threads ThreadStore,
	messages MessageStore,
	cfg config.SyncConfig,
) *HistorySyncService {
	return &HistorySyncService{
		client:   client,
		resolver: contactResolver,
		status:   status,
		threads:  threads,
		messages: messages,
		mat:      NewMaterializer(staff, threads),
		cfg:      cfg,
	}
}

// GetStatus returns the user's current sync status. A user with no row is
// reported as pending.
func (s *HistorySyncService) GetStatus(ctx context.Context, userID uuid.UUID) (*repository.UserSyncStatus, error) {
	status, err := s.status.Get(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return &repository.UserSyncStatus{UserID: userID, Status: repository.SyncStatusPending}, nil
	}
	if err != nil {
		return nil, err
	}
	return status, nil
}

// SyncUserHistory runs the full sync for one user. Repeat calls against a
// completed sync are a no-op unless force is set. Any failure after the
// in_progress transition lands the user in the error state and propagates
// to the caller.
func (s *HistorySyncService) SyncUserHistory(ctx context.Context, user *repository.AppUser, force bool) (*SyncReport, error) {
	current, err := s.status.Get(ctx, user.ID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("read sync status: %w", err)
	}

	if current != nil && current.Status == repository.SyncStatusCompleted && !force {
		logger.Debug().
			Str("user_id", user.ID.String()).
			Msg("history already synced, skipping")
		return &SyncReport{
			ShortCircuited: true,
			Success:        true,
			Message:        "Already synced",
			SyncStatus:     current,
		}, nil
	}

	// Mark in_progress before any external call so a crash mid-sync is
	// observable on next load.
	if _, err := s.status.Set(ctx, user.ID, repository.SyncStatusInProgress); err != nil {
		return nil, fmt.Errorf("set sync status to in_progress: %w", err)
	}

	runID, err := s.status.StartRun(ctx, user.ID)
	if err != nil {
		s.setErrorStatus(ctx, user.ID)
		return nil, fmt.Errorf("start sync run: %w", err)
	}

	report, runErr := s.run(ctx, user, runID)
	if runErr != nil {
		logger.Error().
			Err(runErr).
			Str("user_id", user.ID.String()).
			Msg("history sync failed")
		s.setErrorStatus(ctx, user.ID)
		s.completeRun(ctx, runID, repository.CompleteRunResult{
			Status:       "error",
			ErrorMessage: ptrString(runErr.Error()),
		})
		return nil, runErr
	}

	return report, nil
}

// run executes the sync body after the in_progress transition. It returns a
// report for terminal-but-successful outcomes (including no_contact_found)
// and an error only for run-level failures.
func (s *HistorySyncService) run(ctx context.Context, user *repository.AppUser, runID uuid.UUID) (*SyncReport, error) {
	email := derefString(user.Email)
	phone := derefString(user.Phone)

	match, err := s.resolver.ResolveTrusted(ctx, email, phone)
	if errors.Is(err, resolver.ErrNotFound) {
		status, setErr := s.status.Set(ctx, user.ID, repository.SyncStatusNoContactFound)
		if setErr != nil {
			logger.Error().Err(setErr).Msg("failed to set no_contact_found status")
		}
		s.completeRun(ctx, runID, repository.CompleteRunResult{Status: "no_contact_found"})

		return &SyncReport{
			Success:        false,
			Message:        "No matching contact found in Close",
			SyncStatus:     status,
			SearchCriteria: searchCriteria(email, phone),
			Suggestion:     "Verify the profile email or phone matches the CRM contact",
		}, nil
	}
	if err != nil {
		// Includes ErrNoIdentifier: a profile with no identifiers is a
		// run-level failure, not a contact mismatch.
		return nil, fmt.Errorf("resolve contact: %w", err)
	}

	logger.Info().
		Str("user_id", user.ID.String()).
		Str("close_contact_id", match.ContactID).
		Msg("resolved Close contact, starting import")

	// Sender attribution requires the directory; failure here is fatal to
	// the run.
	users, err := s.client.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch user directory: %w", err)
	}
	directory := make(map[string]closecrm.User, len(users))
	for _, u := range users {
		directory[u.ID] = u
	}

	strategies := activityStrategies(s.client, s.cfg, match, email)
	activities, strategyName, err := fetchWithFallback(ctx, strategies)
	if err != nil {
		return nil, fmt.Errorf("fetch activities: all strategies failed: %w", err)
	}

	report := &SyncReport{
		Success:         true,
		CloseContactID:  match.ContactID,
		Strategy:        strategyName,
		TotalActivities: len(activities),
	}

	for _, activity := range activities {
		outcome := s.importActivity(ctx, user, email, directory, activity)
		if outcome.imported {
			report.ImportedCount++
		} else {
			report.SkippedCount++
		}
		if outcome.note != "" && len(report.Notes) < maxDiagnostics {
			report.Notes = append(report.Notes, outcome.note)
		}
	}

	status, err := s.status.MarkCompleted(ctx, user.ID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("mark sync completed: %w", err)
	}
	report.SyncStatus = status
	report.Message = fmt.Sprintf("Imported %d of %d activities", report.ImportedCount, report.TotalActivities)

	s.completeRun(ctx, runID, repository.CompleteRunResult{
		Status:          "success",
		ImportedCount:   int32(report.ImportedCount),
		SkippedCount:    int32(report.SkippedCount),
		TotalActivities: int32(report.TotalActivities),
		Notes:           report.Notes,
	})

	logger.Info().
		Str("user_id", user.ID.String()).
		Str("strategy", strategyName).
		Int("imported", report.ImportedCount).
		Int("skipped", report.SkippedCount).
		Msg("history sync completed")

	return report, nil
}

// activityOutcome is the per-activity import result
type activityOutcome struct {
	imported bool
	note     string
}

// importActivity processes one activity. Failures are recovered locally:
// the activity is skipped and counted, never aborting the run.
func (s *HistorySyncService) importActivity(
	ctx context.Context,
	user *repository.AppUser,
	userEmail string,
	directory map[string]closecrm.User,
	activity closecrm.Activity,
) activityOutcome {
	c := classify.Classify(activity)
	if !c.Importable() {
		return activityOutcome{note: fmt.Sprintf("skipped %s: unsupported type or empty content (%s)", activity.ID, activity.Type)}
	}

	exists, err := s.messages.ExistsByCloseActivityID(ctx, activity.ID)
	if err != nil {
		return activityOutcome{note: fmt.Sprintf("skipped %s: dedup check failed: %v", activity.ID, err)}
	}
	if exists {
		return activityOutcome{}
	}

	staff, err := s.mat.EnsureStaffContact(ctx, activity.UserID, directory)
	if err != nil {
		return activityOutcome{note: fmt.Sprintf("skipped %s: staff contact: %v", activity.ID, err)}
	}

	thread, err := s.mat.EnsureThread(ctx, user.ID, staff.ID, c.Type, activity)
	if err != nil {
		return activityOutcome{note: fmt.Sprintf("skipped %s: thread: %v", activity.ID, err)}
	}

	sentAt := activity.DateCreated
	if sentAt.IsZero() {
		sentAt = time.Now()
	}

	activityID := activity.ID
	staffName := staff.Name
	req := repository.CreateMessageRequest{
		ThreadID:        thread.ID,
		CloseActivityID: &activityID,
		SenderType:      string(classify.Sender(activity, userEmail)),
		Content:         c.Content,
		MessageType:     string(c.Type),
		SentAt:          sentAt,
		IsHistorical:    true,
		StaffName:       &staffName,
		StaffEmail:      staff.Email,
	}

	if _, err := s.messages.Create(ctx, req); err != nil {
		// A concurrent run imported the same activity between our dedup
		// check and insert; the unique constraint makes that benign.
		if repository.IsUniqueViolation(err) {
			return activityOutcome{}
		}
		return activityOutcome{note: fmt.Sprintf("skipped %s: insert: %v", activity.ID, err)}
	}

	if err := s.threads.RecordMessage(ctx, thread.ID, sentAt); err != nil {
		logger.Warn().
			Err(err).
			Str("thread_id", thread.ID.String()).
			Msg("failed to advance thread display fields")
	}

	return activityOutcome{imported: true}
}

// setErrorStatus moves the user to the error state, best-effort
func (s *HistorySyncService) setErrorStatus(ctx context.Context, userID uuid.UUID) {
	if _, err := s.status.Set(ctx, userID, repository.SyncStatusError); err != nil {
		logger.Error().
			Err(err).
			Str("user_id", userID.String()).
			Msg("failed to set error sync status")
	}
}

// completeRun closes out the audit entry, best-effort
func (s *HistorySyncService) completeRun(ctx context.Context, runID uuid.UUID, result repository.CompleteRunResult) {
	if err := s.status.CompleteRun(ctx, runID, result); err != nil {
		logger.Error().Err(err).Msg("failed to complete sync run")
	}
}

// searchCriteria describes which identifiers the resolution attempted
func searchCriteria(email, phone string) string {
	var parts []string
	if email != "" {
		parts = append(parts, "email: "+email)
	}
	if phone != "" {
		parts = append(parts, "phone: "+phone)
	}
	return strings.Join(parts, ", ")
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ptrString creates a string pointer
func ptrString(s string) *string {
	return &s
}
