// internal/domain/models/user.go
package models

// Terminology: User Identifiers
//   - UserID / userID / user_id: The identity provider's UUID, stored as the user's _id
//   - Email: The mailbox the provider reports for the user; used as the xAPI actor mbox

import "time"

// User mirrors an identity owned by the external identity provider.
//
// The record is created the first time a strong identity logs in and is
// refreshed on every subsequent login. The resolver's derived-session and
// explicit-parameter strategies use it to confirm that a user id taken
// from a request actually exists.
type User struct {
	ID         string `bson:"_id" json:"id"`                    // provider UUID
	FullName   string `bson:"full_name" json:"full_name"`
	FullNameCI string `bson:"full_name_ci" json:"full_name_ci"` // folded for search

	Email string `bson:"email" json:"email"` // lowercase

	// Role and status
	Role   string `bson:"role" json:"role"`
	Status string `bson:"status,omitempty" json:"status,omitempty"` // active, disabled

	LastLoginAt *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AllRoles returns all valid user roles.
func AllRoles() []string {
	return []string{
		RoleUser,
		RoleAdmin,
	}
}

// IsValidRole checks if a role is valid.
func IsValidRole(role string) bool {
	for _, r := range AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}
