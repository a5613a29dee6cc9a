package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"careops/backend/internal/closecrm"
	"careops/backend/internal/config"
	"careops/backend/internal/logger"
	"careops/backend/internal/resolver"
)

// fetchStrategy is one ordered attempt at fetching a contact's activities.
// Strategies share a uniform signature so the combinator can try them in
// sequence and each can be tested on its own.
type fetchStrategy struct {
	name  string
	fetch func(ctx context.Context) ([]closecrm.Activity, error)
}

// fetchWithFallback tries strategies in order and returns the first success
// along with the winning strategy's name. An empty result is still a
// success; only errors advance the cascade. If every strategy fails the last
// error is returned.
func fetchWithFallback(ctx context.Context, strategies []fetchStrategy) ([]closecrm.Activity, string, error) {
	var lastErr error
	for _, s := range strategies {
		activities, err := s.fetch(ctx)
		if err != nil {
			logger.Warn().
				Err(err).
				Str("strategy", s.name).
				Msg("activity fetch strategy failed, trying next")
			lastErr = err
			continue
		}
		return activities, s.name, nil
	}
	return nil, "", lastErr
}

// activityStrategies builds the three-tier cascade for one resolved contact:
//  1. direct contact-id filter
//  2. lead-id filter, post-filtered client-side to this contact
//  3. recent-window fetch with the same post-filter
//
// The cascade exists because the contact-id filter is unreliable for some
// Close account configurations.
func activityStrategies(client CloseClient, cfg config.SyncConfig, match *resolver.Match, userEmail string) []fetchStrategy {
	strategies := []fetchStrategy{
		{
			name: "contact_id",
			fetch: func(ctx context.Context) ([]closecrm.Activity, error) {
				return client.ListActivities(ctx, closecrm.ActivityFilter{
					ContactID: match.ContactID,
					Limit:     cfg.PageLimit,
				})
			},
		},
	}

	if match.LeadID != "" {
		strategies = append(strategies, fetchStrategy{
			name: "lead_id",
			fetch: func(ctx context.Context) ([]closecrm.Activity, error) {
				activities, err := client.ListActivities(ctx, closecrm.ActivityFilter{
					LeadID: match.LeadID,
					Limit:  cfg.PageLimit,
				})
				if err != nil {
					return nil, err
				}
				return filterForContact(activities, match.ContactID, userEmail), nil
			},
		})
	}

	strategies = append(strategies, fetchStrategy{
		name: "recent_window",
		fetch: func(ctx context.Context) ([]closecrm.Activity, error) {
			since := time.Now().AddDate(0, 0, -cfg.WindowDays)
			activities, err := client.ListActivities(ctx, closecrm.ActivityFilter{
				Since: since,
				Limit: cfg.PageLimit,
			})
			if err != nil {
				return nil, err
			}
			return filterForContact(activities, match.ContactID, userEmail), nil
		},
	})

	return strategies
}

// filterForContact keeps activities that reference the contact id directly
// or carry the user's email address in an envelope field. Address comparison
// is exact, not substring, so a window fetch cannot attribute another
// contact's activity to this user.
func filterForContact(activities []closecrm.Activity, contactID, userEmail string) []closecrm.Activity {
	filtered := make([]closecrm.Activity, 0, len(activities))
	for _, a := range activities {
		if a.ContactID != "" && a.ContactID == contactID {
			filtered = append(filtered, a)
			continue
		}
		if userEmail != "" && activityMentionsAddress(a, userEmail) {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// activityMentionsAddress checks the from/sender/to envelope fields for an
// exact address match
func activityMentionsAddress(a closecrm.Activity, email string) bool {
	if addressEquals(a.From, email) || addressEquals(a.Sender, email) {
		return true
	}
	for _, to := range a.To {
		if addressEquals(to, email) {
			return true
		}
	}
	return false
}

// addressEquals compares one envelope entry against an email address. RFC
// 5322 forms like "Jane Doe <jane@x.com>" are parsed; anything unparseable
// falls back to a trimmed case-insensitive comparison of the whole field.
func addressEquals(raw, email string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	if addr, err := mail.ParseAddress(raw); err == nil {
		return strings.EqualFold(addr.Address, email)
	}
	return strings.EqualFold(raw, email)
}
