// Package repository declares the storage interfaces the service layer
// depends on. The sqlite subpackage implements them; service tests use
// in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/notes/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// NoteRepository persists notes.
//
// Every method that reads or changes a single note takes the author's ID and
// filters on it in SQL. A note owned by someone else is indistinguishable
// from a missing one: both return apperror.ErrNotFound.
type NoteRepository interface {
	Create(ctx context.Context, note *model.Note) error
	GetBySlug(ctx context.Context, slug, authorID string) (*model.Note, error)
	ListByAuthor(ctx context.Context, authorID string, opts ListOptions) ([]model.Note, error)
	// SlugExists reports whether any note other than excludeID uses slug.
	// Pass excludeID == "" to check against every note.
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	Update(ctx context.Context, note *model.Note) error
	Delete(ctx context.Context, slug, authorID string) error
	Count(ctx context.Context) (int, error)
}

// UserRepository persists user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UpsertGitHubUser(ctx context.Context, user *model.User) error
}
