// Package resolver maps a local user's identifiers to a Close contact.
//
// It exposes two named entry points with different trust levels. ResolveExact
// backs the user-facing live lookup and only accepts an exact email match,
// so the provider's fuzzy search can never leak a near-miss stranger's
// history. ResolveTrusted backs the server-side sync path, where the query
// is anchored on already-validated profile data and the first result is
// accepted. The asymmetry is intentional; keep them as separate methods.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"careops/backend/internal/closecrm"
	"careops/backend/internal/logger"
	"careops/backend/internal/normalize"
)

// Sentinel outcomes. Neither is a transport failure; API errors from the
// Close client pass through unchanged.
var (
	// ErrNoIdentifier means the local profile has neither email nor phone
	ErrNoIdentifier = errors.New("no email or phone on profile to search with")
	// ErrNotFound means the search ran but no acceptable contact matched
	ErrNotFound = errors.New("no matching contact found")
)

// ContactSearcher is the slice of the Close client the resolver needs
type ContactSearcher interface {
	SearchContacts(ctx context.Context, query string) ([]closecrm.Contact, error)
}

// Match is a resolved Close contact
type Match struct {
	ContactID string
	LeadID    string
	Contact   closecrm.Contact
}

// Resolver finds Close contacts for local users
type Resolver struct {
	searcher ContactSearcher
}

// New creates a resolver over the given searcher
func New(searcher ContactSearcher) *Resolver {
	return &Resolver{searcher: searcher}
}

// ResolveExact finds the contact whose email list contains a case-insensitive
// exact match for the given address. Candidates with merely similar emails
// are rejected; zero acceptable candidates is ErrNotFound, not an error.
func (r *Resolver) ResolveExact(ctx context.Context, email string) (*Match, error) {
	email = normalize.Email(email)
	if email == "" {
		return nil, ErrNoIdentifier
	}

	contacts, err := r.searcher.SearchContacts(ctx, "email:"+email)
	if err != nil {
		return nil, fmt.Errorf("contact search: %w", err)
	}

	for _, contact := range contacts {
		for _, ce := range contact.Emails {
			if normalize.Email(ce.Email) == email {
				return &Match{ContactID: contact.ID, LeadID: contact.LeadID, Contact: contact}, nil
			}
		}
	}

	logger.Debug().
		Str("email", email).
		Int("candidates", len(contacts)).
		Msg("search returned no exact email match")
	return nil, ErrNotFound
}

// ResolveTrusted finds a contact for the sync path: email preferred, phone as
// fallback, first search result accepted. The query is already anchored on
// verified stored profile fields, so the exact-match guard is not applied.
func (r *Resolver) ResolveTrusted(ctx context.Context, email, phone string) (*Match, error) {
	email = normalize.Email(email)
	phone = normalize.Phone(phone)

	queries := make([]string, 0, 2)
	if email != "" {
		queries = append(queries, "email:"+email)
	}
	if phone != "" {
		queries = append(queries, "phone:"+phone)
	}
	if len(queries) == 0 {
		return nil, ErrNoIdentifier
	}

	for _, query := range queries {
		contacts, err := r.searcher.SearchContacts(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("contact search: %w", err)
		}
		if len(contacts) > 0 {
			contact := contacts[0]
			return &Match{ContactID: contact.ID, LeadID: contact.LeadID, Contact: contact}, nil
		}
	}

	return nil, ErrNotFound
}
