// Package user defines the account model shared by the platform services.
package user

import "time"

// Role classifies a member of the community.
type Role string

const (
	RoleStudent  Role = "student"
	RoleAlumni   Role = "alumni"
	RoleEmployer Role = "employer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleAlumni, RoleEmployer, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered member. PasswordHash is a bcrypt hash and is
// never serialised in API responses.
type User struct {
	ID             string
	Email          string
	Name           string
	Role           Role
	PasswordHash   string
	Bio            string
	GraduationYear int
	Verified       bool
	ReferralCode   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
