// Package classify turns raw Close activities into canonical message types,
// display content, and sender attribution. Everything here is a pure
// function over one activity; the polymorphic field probing of the Close
// payload is contained to this package.
package classify

import (
	"strings"

	"careops/backend/internal/closecrm"
)

// MessageType is the canonical type stored on an imported message
type MessageType string

const (
	TypeEmail MessageType = "email"
	TypeSMS   MessageType = "sms"
	TypeCall  MessageType = "call"
	// TypeOther buckets every unrecognized activity type (notes, tasks,
	// lead status changes). The import path skips these; the lookup view
	// still renders them with a fallback label.
	TypeOther MessageType = "other"
)

// SenderType attributes a message to one side of the conversation
type SenderType string

const (
	SenderUser  SenderType = "user"
	SenderStaff SenderType = "staff"
)

// NoContent is the sentinel for an activity with no extractable content
const NoContent = "No content available"

// PreviewLimit is the rendered-preview truncation threshold in runes.
// Stored content is never truncated.
const PreviewLimit = 500

// Classification is the result of classifying one activity
type Classification struct {
	Type    MessageType
	Content string
}

// Supported reports whether the activity type is imported as a message
func (c Classification) Supported() bool {
	return c.Type != TypeOther
}

// Importable reports whether the import path should persist this activity.
// Email and SMS activities with no extractable content are treated as noise
// and excluded from import; the lookup view still displays them.
func (c Classification) Importable() bool {
	if !c.Supported() {
		return false
	}
	if (c.Type == TypeEmail || c.Type == TypeSMS) && c.Content == NoContent {
		return false
	}
	return true
}

// Classify determines the canonical type and display content for an activity
func Classify(a closecrm.Activity) Classification {
	msgType := canonicalType(a.Type)
	return Classification{
		Type:    msgType,
		Content: extractContent(msgType, a),
	}
}

// canonicalType maps Close's _type to a canonical message type. Email, SMS
// and call pass through; everything else lands in the generic bucket.
func canonicalType(raw string) MessageType {
	switch strings.ToLower(raw) {
	case "email":
		return TypeEmail
	case "sms":
		return TypeSMS
	case "call":
		return TypeCall
	default:
		return TypeOther
	}
}

// extractContent walks the per-variant field preference order and returns
// the first non-empty candidate, falling back to raw-payload hints and
// finally the NoContent sentinel.
func extractContent(msgType MessageType, a closecrm.Activity) string {
	var candidates []string
	switch msgType {
	case TypeEmail:
		candidates = []string{a.BodyText, a.BodyHTML}
	case TypeSMS:
		candidates = []string{a.Text, a.Note}
	case TypeCall:
		candidates = []string{a.Note, a.Text}
	default:
		candidates = []string{a.Note, a.Text}
	}

	// Raw-payload hints apply to every variant as a last resort
	candidates = append(candidates, a.TemplateName, a.Summary, a.Description)

	for _, c := range candidates {
		if trimmed := strings.TrimSpace(c); trimmed != "" {
			return trimmed
		}
	}
	return NoContent
}

// Sender attributes an activity to the user or a staff member. For email the
// from/sender address is matched against the known user email; for SMS and
// call the direction decides. The inbound-means-user assumption for SMS and
// call is a heuristic carried from observed account behavior, not a
// guarantee for multi-line configurations.
func Sender(a closecrm.Activity, userEmail string) SenderType {
	switch canonicalType(a.Type) {
	case TypeEmail:
		from := a.From
		if from == "" {
			from = a.Sender
		}
		if userEmail != "" && strings.Contains(strings.ToLower(from), strings.ToLower(userEmail)) {
			return SenderUser
		}
		return SenderStaff
	case TypeSMS, TypeCall:
		if isInbound(a.Direction) {
			return SenderUser
		}
		return SenderStaff
	default:
		return SenderStaff
	}
}

// isInbound normalizes the direction field; Close emits both "inbound" and
// "incoming" depending on activity type.
func isInbound(direction string) bool {
	switch strings.ToLower(direction) {
	case "inbound", "incoming":
		return true
	default:
		return false
	}
}

// Preview truncates content for display with an ellipsis marker. Only the
// rendered preview is truncated; stored content keeps its full length.
func Preview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewLimit {
		return content
	}
	return string(runes[:PreviewLimit]) + "..."
}

// DefaultSubject returns the default thread subject for an activity,
// preferring the email's own subject when present.
func DefaultSubject(msgType MessageType, a closecrm.Activity) string {
	switch msgType {
	case TypeEmail:
		if subject := strings.TrimSpace(a.Subject); subject != "" {
			return subject
		}
		return "Email Conversation"
	case TypeSMS:
		return "SMS Conversation"
	case TypeCall:
		return "Call Activity"
	default:
		return "Conversation"
	}
}
