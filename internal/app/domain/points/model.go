// Package points defines the gamification model: point awards and badges.
package points

import "time"

// Reasons attached to point awards by the feature services.
const (
	ReasonForumPost   = "forum_post"
	ReasonApplication = "listing_application"
	ReasonReferral    = "referral"
	ReasonReferred    = "referred_signup"
)

// Award records points granted to a user. RefID points at the originating
// entity (post, application, referral) when there is one.
type Award struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Points    int       `json:"points"`
	Reason    string    `json:"reason"`
	RefID     string    `json:"ref_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Badge marks a threshold reached by a user.
type Badge struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	AwardedAt time.Time `json:"awarded_at"`
}

// Standard badge thresholds, checked after every award.
var BadgeThresholds = []struct {
	Name   string
	Points int
}{
	{Name: "newcomer", Points: 10},
	{Name: "contributor", Points: 100},
	{Name: "pillar", Points: 500},
}

// LeaderboardEntry is one row of the points ranking.
type LeaderboardEntry struct {
	UserID string `json:"user_id"`
	Points int    `json:"points"`
	Rank   int    `json:"rank"`
}
