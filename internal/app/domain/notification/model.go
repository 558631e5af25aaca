// Package notification defines queued user notifications.
package notification

import "time"

// Kind classifies a notification for filtering and templates.
type Kind string

const (
	KindMessage     Kind = "message"
	KindApplication Kind = "application"
	KindPayment     Kind = "payment"
	KindDigest      Kind = "digest"
)

// Status tracks delivery.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Notification is a queued message delivered out-of-band (email).
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      Kind      `json:"kind"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body,omitempty"`
	Status    Status    `json:"status"`
	SentAt    time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
