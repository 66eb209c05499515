// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents an account on the board.
//
// A user comes from one of two places:
//   - local registration: Username and PasswordHash are set, GoogleID is nil
//   - Google sign-in: GoogleID is set, Username and PasswordHash are empty
//
// Secrets is append-only. Nothing in the application edits or removes an entry.
type User struct {
	ID           string    `json:"id"           db:"id"`
	Username     string    `json:"username"     db:"username"`
	PasswordHash string    `json:"-"            db:"password_hash"`
	GoogleID     *string   `json:"googleId"     db:"google_id"` // nil for local accounts
	Secrets      []string  `json:"secrets"`                     // stored in the secrets table, ordered by position
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"    db:"updated_at"`
}

// HasLocalCredential reports whether the user can sign in with a password.
func (u *User) HasLocalCredential() bool {
	return u.PasswordHash != ""
}
