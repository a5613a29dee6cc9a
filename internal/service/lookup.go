package service

import (
	"context"
	"errors"
	"fmt"

	"careops/backend/internal/classify"
	"careops/backend/internal/closecrm"
	"careops/backend/internal/config"
	"careops/backend/internal/logger"
	"careops/backend/internal/resolver"
)

// ContactSummary is the lookup view of a resolved Close contact
type ContactSummary struct {
	CloseContactID string `json:"close_contact_id"`
	LeadID         string `json:"lead_id,omitempty"`
	Name           string `json:"name,omitempty"`
}

// ActivityView is a single activity prepared for display without persistence
type ActivityView struct {
	CloseActivityID string `json:"close_activity_id"`
	Type            string `json:"type"`
	Direction       string `json:"direction,omitempty"`
	Subject         string `json:"subject"`
	Preview         string `json:"preview"`
	SentAt          string `json:"sent_at,omitempty"`
}

// LookupResult is the outcome of a live, read-only CRM lookup
type LookupResult struct {
	Found           bool            `json:"found"`
	Contact         *ContactSummary `json:"contact"`
	Activities      []ActivityView  `json:"activities"`
	Users           []closecrm.User `json:"users,omitempty"`
	TotalActivities int             `json:"total_activities"`
	Strategy        string          `json:"strategy,omitempty"`
}

// LookupService answers live CRM queries for a caller-supplied identifier.
// Unlike the history sync it resolves with strict exact matching and writes
// nothing to the database.
type LookupService struct {
	client   CloseClient
	resolver ContactResolver
	cfg      config.SyncConfig
}

// NewLookupService creates a new lookup service
func NewLookupService(client CloseClient, contactResolver ContactResolver, cfg config.SyncConfig) *LookupService {
	return &LookupService{client: client, resolver: contactResolver, cfg: cfg}
}

// Lookup resolves the email against Close and returns classified activities
// for display. A contact that cannot be exactly matched yields Found=false
// with a nil contact rather than an error.
func (s *LookupService) Lookup(ctx context.Context, email string) (*LookupResult, error) {
	match, err := s.resolver.ResolveExact(ctx, email)
	if errors.Is(err, resolver.ErrNotFound) {
		return &LookupResult{Found: false, Activities: []ActivityView{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve contact: %w", err)
	}

	strategies := activityStrategies(s.client, s.cfg, match, email)
	activities, strategyName, err := fetchWithFallback(ctx, strategies)
	if err != nil {
		return nil, fmt.Errorf("fetch activities: all strategies failed: %w", err)
	}

	result := &LookupResult{
		Found:           true,
		Contact:         contactSummary(match),
		Activities:      make([]ActivityView, 0, len(activities)),
		TotalActivities: len(activities),
		Strategy:        strategyName,
	}

	// The user directory lets the client attribute activities to staff by
	// name; losing it degrades the display, not the lookup.
	users, err := s.client.ListUsers(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("lookup could not fetch user directory")
	} else {
		result.Users = users
	}

	for _, activity := range activities {
		// Unsupported types are still displayed with their fallback
		// subject; only the import path drops them.
		c := classify.Classify(activity)
		view := ActivityView{
			CloseActivityID: activity.ID,
			Type:            string(c.Type),
			Direction:       activity.Direction,
			Subject:         classify.DefaultSubject(c.Type, activity),
			Preview:         classify.Preview(c.Content),
		}
		if !activity.DateCreated.IsZero() {
			view.SentAt = activity.DateCreated.UTC().Format("2006-01-02T15:04:05Z07:00")
		}
		result.Activities = append(result.Activities, view)
	}

	logger.Debug().
		Str("close_contact_id", match.ContactID).
		Str("strategy", strategyName).
		Int("activities", len(result.Activities)).
		Msg("lookup completed")

	return result, nil
}

func contactSummary(match *resolver.Match) *ContactSummary {
	return &ContactSummary{
		CloseContactID: match.ContactID,
		LeadID:         match.LeadID,
		Name:           match.Contact.Name,
	}
}
