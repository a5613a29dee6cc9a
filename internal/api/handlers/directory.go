package handlers

import (
	"context"
	"net/http"

	"careops/backend/internal/api"
	"careops/backend/internal/repository"
	"careops/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// StaffLister reads the local staff contact table
type StaffLister interface {
	List(ctx context.Context) ([]repository.StaffContact, error)
}

// DirectoryHandler handles staff directory HTTP requests
type DirectoryHandler struct {
	directory *service.DirectoryService
	staff     StaffLister
}

// NewDirectoryHandler creates a new directory handler
func NewDirectoryHandler(directory *service.DirectoryService, staff StaffLister) *DirectoryHandler {
	return &DirectoryHandler{directory: directory, staff: staff}
}

// ListStaff returns the synced staff directory
func (h *DirectoryHandler) ListStaff(c *gin.Context) {
	contacts, err := h.staff.List(c.Request.Context())
	if err != nil {
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to list staff contacts", err.Error())
		return
	}

	api.SendSuccess(c, http.StatusOK, gin.H{"staff": contacts})
}

// SyncContacts pulls the CRM user directory into the staff contacts table
func (h *DirectoryHandler) SyncContacts(c *gin.Context) {
	count, err := h.directory.SyncDirectory(c.Request.Context())
	if err != nil {
		api.SendUpstreamError(c, "Directory sync failed")
		return
	}

	api.SendSuccess(c, http.StatusOK, gin.H{"synced": count})
}
