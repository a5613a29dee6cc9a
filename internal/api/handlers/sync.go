package handlers

import (
	"context"
	"net/http"

	"careops/backend/internal/api"
	"careops/backend/internal/auth"
	"careops/backend/internal/repository"
	"careops/backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RunLister reads the sync run audit log
type RunLister interface {
	ListRecentRuns(ctx context.Context, userID uuid.UUID, limit int32) ([]repository.SyncRun, error)
}

// SyncHandler handles history sync HTTP requests
type SyncHandler struct {
	history *service.HistorySyncService
	runs    RunLister
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(history *service.HistorySyncService, runs RunLister) *SyncHandler {
	return &SyncHandler{history: history, runs: runs}
}

// SyncHistoryRequest represents the request body for triggering a sync
type SyncHistoryRequest struct {
	ForceSync bool `json:"force_sync"`
}

// SyncStatusResponse pairs the stored status row with its banner label
type SyncStatusResponse struct {
	UserID       string  `json:"user_id"`
	Status       string  `json:"status"`
	DisplayLabel string  `json:"display_label,omitempty"`
	LastSyncedAt *string `json:"last_synced_at,omitempty"`
}

// SyncHistory triggers the history sync for the authenticated user
func (h *SyncHandler) SyncHistory(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		api.SendUnauthorized(c, "User not authenticated")
		return
	}

	var req SyncHistoryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			api.SendValidationError(c, "Invalid request body", err.Error())
			return
		}
	}

	report, err := h.history.SyncUserHistory(c.Request.Context(), user, req.ForceSync)
	if err != nil {
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "History sync failed", err.Error())
		return
	}

	api.SendSuccess(c, http.StatusOK, report)
}

// GetSyncStatus returns the authenticated user's sync status
func (h *SyncHandler) GetSyncStatus(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		api.SendUnauthorized(c, "User not authenticated")
		return
	}

	status, err := h.history.GetStatus(c.Request.Context(), user.ID)
	if err != nil {
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to read sync status", err.Error())
		return
	}

	api.SendSuccess(c, http.StatusOK, syncStatusResponse(status))
}

// GetSyncRuns returns the user's recent sync run audit entries
func (h *SyncHandler) GetSyncRuns(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		api.SendUnauthorized(c, "User not authenticated")
		return
	}

	runs, err := h.runs.ListRecentRuns(c.Request.Context(), user.ID, 20)
	if err != nil {
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to list sync runs", err.Error())
		return
	}

	api.SendSuccess(c, http.StatusOK, gin.H{"runs": runs})
}

func syncStatusResponse(status *repository.UserSyncStatus) SyncStatusResponse {
	resp := SyncStatusResponse{
		UserID:       status.UserID.String(),
		Status:       string(status.Status),
		DisplayLabel: status.Status.DisplayLabel(),
	}
	if status.LastSyncedAt != nil {
		formatted := status.LastSyncedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		resp.LastSyncedAt = &formatted
	}
	return resp
}
