// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Note is a short text note owned by exactly one user.
//
// Slug is the note's public key in URLs (/note/{slug}/). It is unique across
// ALL notes, not just per author. The database enforces this with a UNIQUE
// constraint, so two authors can never hold the same slug.
//
// AuthorID is set once at creation and never updated. Every read or write of
// a note is filtered by (slug, author_id), which is how ownership is enforced.
type Note struct {
	ID        string    `json:"id"        db:"id"`
	Title     string    `json:"title"     db:"title"`
	Text      string    `json:"text"      db:"text"`
	Slug      string    `json:"slug"      db:"slug"`
	AuthorID  string    `json:"authorId"  db:"author_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
