package closecrm

import (
	"strings"
	"time"
)

// Contact is a snapshot of a Close contact as returned by search. It is
// read-only and never cached beyond a single sync run.
type Contact struct {
	ID          string         `json:"id"`
	LeadID      string         `json:"lead_id,omitempty"`
	Name        string         `json:"name"`
	Emails      []ContactEmail `json:"emails"`
	Phones      []ContactPhone `json:"phones"`
	DateCreated *time.Time     `json:"date_created,omitempty"`
	DateUpdated *time.Time     `json:"date_updated,omitempty"`
}

// ContactEmail is one (address, type) pair on a contact
type ContactEmail struct {
	Email string `json:"email"`
	Type  string `json:"type,omitempty"`
}

// ContactPhone is one (number, type) pair on a contact
type ContactPhone struct {
	Phone string `json:"phone"`
	Type  string `json:"type,omitempty"`
}

// User is a Close staff account from the user directory
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Name returns the best display name available for the user
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return u.Email
}

// Activity is one CRM-recorded interaction. The shape is polymorphic: which
// content fields are populated depends on Type ("Email", "SMS", "Call",
// "Note", ...). All fields are decoded optimistically; consumers go through
// the classify package rather than probing these fields directly.
type Activity struct {
	ID          string    `json:"id"`
	Type        string    `json:"_type"`
	DateCreated time.Time `json:"date_created"`
	UserID      string    `json:"user_id,omitempty"`
	ContactID   string    `json:"contact_id,omitempty"`
	LeadID      string    `json:"lead_id,omitempty"`
	Direction   string    `json:"direction,omitempty"`

	// Email fields
	Subject  string   `json:"subject,omitempty"`
	BodyText string   `json:"body_text,omitempty"`
	BodyHTML string   `json:"body_html,omitempty"`
	Sender   string   `json:"sender,omitempty"`
	From     string   `json:"from,omitempty"`
	To       []string `json:"to,omitempty"`

	// SMS / call / note fields
	Text string `json:"text,omitempty"`
	Note string `json:"note,omitempty"`

	// Raw-payload hints used as a last-resort content source
	TemplateName string `json:"template_name,omitempty"`
	Summary      string `json:"summary,omitempty"`
	Description  string `json:"description,omitempty"`
}

// ActivityFilter selects which activities to fetch. Exactly one of
// ContactID, LeadID, or Since must be set.
type ActivityFilter struct {
	ContactID string
	LeadID    string
	Since     time.Time
	Limit     int
}

// EmailRequest is an outbound email to send through Close
type EmailRequest struct {
	ContactID string   `json:"contact_id,omitempty"`
	LeadID    string   `json:"lead_id,omitempty"`
	To        []string `json:"to"`
	Subject   string   `json:"subject"`
	BodyText  string   `json:"body_text"`
	Status    string   `json:"status"`
}
