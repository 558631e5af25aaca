// Package referral defines the referral growth feature model.
package referral

import "time"

// Referral links a new signup to the member whose code was redeemed.
// CreditedAt is set once points have been granted to both sides.
type Referral struct {
	ID         string    `json:"id"`
	ReferrerID string    `json:"referrer_id"`
	ReferredID string    `json:"referred_id"`
	Code       string    `json:"code"`
	CreditedAt time.Time `json:"credited_at,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Stats summarises a member's referral activity.
type Stats struct {
	UserID   string `json:"user_id"`
	Code     string `json:"code"`
	Total    int    `json:"total"`
	Credited int    `json:"credited"`
}
