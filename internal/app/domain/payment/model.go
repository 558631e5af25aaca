// Package payment defines payments processed through the external gateway.
package payment

import "time"

// Purpose states what a payment buys.
type Purpose string

const (
	PurposeMembership Purpose = "membership"
	PurposeDonation   Purpose = "donation"
	PurposeJobPost    Purpose = "job_post"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeMembership, PurposeDonation, PurposeJobPost:
		return true
	}
	return false
}

// Status is the settlement state of a payment. Transitions are
// pending -> succeeded or pending -> failed only.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Payment is a charge created at the gateway on behalf of a user.
type Payment struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Purpose       Purpose   `json:"purpose"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
	Status        Status    `json:"status"`
	GatewayRef    string    `json:"gateway_ref,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
