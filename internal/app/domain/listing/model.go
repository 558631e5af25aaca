// Package listing defines job and scholarship listings and their
// applications.
package listing

import "time"

// Kind distinguishes the two listing flavours.
type Kind string

const (
	KindJob         Kind = "job"
	KindScholarship Kind = "scholarship"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindJob || k == KindScholarship
}

// Status is the lifecycle state of a listing.
type Status string

const (
	StatusOpen    Status = "open"
	StatusClosed  Status = "closed"
	StatusExpired Status = "expired"
)

// Listing is a job or scholarship posting.
type Listing struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Kind         Kind      `json:"kind"`
	Title        string    `json:"title"`
	Company      string    `json:"company,omitempty"`
	Description  string    `json:"description"`
	Location     string    `json:"location,omitempty"`
	Compensation string    `json:"compensation,omitempty"`
	Deadline     time.Time `json:"deadline"`
	Status       Status    `json:"status"`
	Tags         []string  `json:"tags,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ApplicationStatus tracks an application through review.
type ApplicationStatus string

const (
	ApplicationSubmitted ApplicationStatus = "submitted"
	ApplicationReviewed  ApplicationStatus = "reviewed"
	ApplicationAccepted  ApplicationStatus = "accepted"
	ApplicationRejected  ApplicationStatus = "rejected"
)

// Application is a member's application to a listing.
type Application struct {
	ID          string            `json:"id"`
	ListingID   string            `json:"listing_id"`
	ApplicantID string            `json:"applicant_id"`
	Note        string            `json:"note,omitempty"`
	Status      ApplicationStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Filter narrows a listing search. Zero values match everything.
type Filter struct {
	Kind     Kind
	Tag      string
	Location string
	Status   Status
}
