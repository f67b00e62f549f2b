// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, with json tags for the API and
// db tags for sqlx row mapping.
package model

import "time"

// Role is the closed set of account roles.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered account.
//
// Accounts are created by email/password registration or, when GitHub OAuth
// is configured, on first GitHub login. GitHubID is nil for password-only
// accounts; the UNIQUE constraint on github_id ignores NULLs, so any number of
// password accounts can coexist.
//
// PasswordHash is tagged json:"-" so it can never leak into a response.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	Name         string    `json:"name"      db:"name"`
	Bio          string    `json:"bio"       db:"bio"`
	Role         Role      `json:"role"      db:"role"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	GitHubID     *int64    `json:"githubId,omitempty" db:"github_id"`
	AvatarURL    string    `json:"avatarUrl" db:"avatar_url"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// IsAdmin reports whether the account has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
