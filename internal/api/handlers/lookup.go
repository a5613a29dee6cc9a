package handlers

import (
	"net/http"

	"careops/backend/internal/api"
	"careops/backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// LookupHandler handles live CRM lookup requests
type LookupHandler struct {
	lookup    *service.LookupService
	validator *validator.Validate
}

// NewLookupHandler creates a new lookup handler
func NewLookupHandler(lookup *service.LookupService) *LookupHandler {
	return &LookupHandler{
		lookup:    lookup,
		validator: validator.New(),
	}
}

// LookupRequest represents the request body for a CRM lookup
type LookupRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Lookup resolves an email against the CRM and returns display-ready
// activity history without persisting anything
func (h *LookupHandler) Lookup(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		api.SendValidationError(c, "Validation failed", err.Error())
		return
	}

	result, err := h.lookup.Lookup(c.Request.Context(), req.Email)
	if err != nil {
		api.SendUpstreamError(c, "CRM lookup failed")
		return
	}

	message := "Contact found"
	if !result.Found {
		message = "No matching contact found"
	}

	api.SendSuccess(c, http.StatusOK, gin.H{
		"contact":    result.Contact,
		"activities": result.Activities,
		"users":      result.Users,
		"total":      result.TotalActivities,
		"message":    message,
	})
}
