package email

import (
	"time"
)

// Provider identifies the mailbox provider an email was fetched from.
const (
	ProviderGmail   = "gmail"
	ProviderOutlook = "outlook"
)

// Client defines the interface for email providers
type Client interface {
	// Search performs a provider search query and returns matching messages
	Search(query string) ([]RawEmail, error)

	// GetMessage retrieves the full content of a specific message
	GetMessage(id string) (*RawEmail, error)

	// HealthCheck verifies the client connection is working
	HealthCheck() error

	// Close cleans up resources
	Close() error
}

// RawEmail represents a fetched email message with parsed content
type RawEmail struct {
	MessageID string            `json:"message_id"`
	ThreadID  string            `json:"thread_id"`
	Provider  string            `json:"provider"`
	From      string            `json:"from"`
	Subject   string            `json:"subject"`
	Date      time.Time         `json:"date"`
	Headers   map[string]string `json:"headers"`

	// Content in different formats
	PlainText string `json:"plain_text"`
	HTMLText  string `json:"html_text"`

	// Provider labels or folder names, when available
	Labels []string `json:"labels,omitempty"`
}

// Body returns the richest content available for pattern matching.
// HTML is preferred because marketplace emails carry codes and pickup
// links inside markup that is stripped from the plain text part.
func (r *RawEmail) Body() string {
	if r.HTMLText != "" {
		return r.HTMLText
	}
	return r.PlainText
}

// Unparsed email lifecycle statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusFailed     = "failed"
)

// ValidStatusTransition reports whether an unparsed email may move
// from one status to another. Terminal states can only be re-entered
// through requeueing (failed -> pending).
func ValidStatusTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusProcessed || to == StatusFailed
	case StatusFailed:
		return to == StatusPending
	default:
		return false
	}
}

// UnparsedEmail is an email that could not be confidently parsed and
// is queued for escalation. The partial extraction results are kept so
// the escalation step only has to fill the gaps.
type UnparsedEmail struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"user_id"`
	MessageID      string    `json:"message_id"`
	Provider       string    `json:"provider"`
	Subject        string    `json:"subject"`
	Sender         string    `json:"sender"`
	Body           string    `json:"body"`
	ReceivedAt     time.Time `json:"received_at"`

	// Partial extraction results at queue time
	TrackingNumber  string `json:"tracking_number,omitempty"`
	Carrier         string `json:"carrier,omitempty"`
	Completeness    int    `json:"completeness"`
	IsTrackingEmail bool   `json:"is_tracking_email"`

	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
	EscalatedAt  *time.Time `json:"escalated_at,omitempty"`
}
