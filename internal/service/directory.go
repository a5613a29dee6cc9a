package service

import (
	"context"
	"fmt"

	"careops/backend/internal/logger"
	"careops/backend/internal/repository"
)

// DirectoryService keeps the local staff contact table aligned with the
// Close user directory. It runs on a schedule and on demand.
type DirectoryService struct {
	client CloseClient
	staff  StaffContactStore
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(client CloseClient, staff StaffContactStore) *DirectoryService {
	return &DirectoryService{client: client, staff: staff}
}

// SyncDirectory fetches the Close user directory and upserts a staff contact
// per user. Existing rows keep their role and is_staff flag; name, email and
// phone are refreshed. Returns the number of users processed.
func (s *DirectoryService) SyncDirectory(ctx context.Context) (int, error) {
	users, err := s.client.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch user directory: %w", err)
	}

	synced := 0
	for _, u := range users {
		if u.ID == "" {
			continue
		}
		req := repository.CreateStaffContactRequest{
			CloseUserID: u.ID,
			Name:        u.Name(),
		}
		if u.Email != "" {
			email := u.Email
			req.Email = &email
		}
		if _, err := s.staff.UpsertByCloseUserID(ctx, req); err != nil {
			return synced, fmt.Errorf("upsert staff contact %s: %w", u.ID, err)
		}
		synced++
	}

	logger.Info().Int("synced", synced).Msg("staff directory synced")
	return synced, nil
}
