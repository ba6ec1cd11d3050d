// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered user account.
//
// Users sign up with a username and password, or sign in through GitHub.
// A GitHub account maps to exactly one user through the UNIQUE github_id
// column; local-only accounts leave GitHubID at zero (stored as NULL).
//
// PasswordHash holds a bcrypt hash and is never serialized to JSON. It is
// empty for accounts created through GitHub, which cannot log in with a
// password.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	GitHubID     int64     `json:"githubId,omitempty" db:"github_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
