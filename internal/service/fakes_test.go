package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/repository"
)

// =========================================================================
// IN-MEMORY REPOSITORIES
// =========================================================================
//
// These fakes implement the repository interfaces with maps so service tests
// run without SQLite. They follow the same contract as the sqlite package:
// someone else's note is ErrNotFound, a taken slug is DuplicateSlug.

type fakeNoteRepo struct {
	notes  []*model.Note // insertion order = creation order
	nextID int

	// set to simulate store failures
	createErr error
	listErr   error
	existsErr error

	// skipSlugIndex makes SlugExists lie, to exercise the store-level backstop
	skipSlugIndex bool
}

var _ repository.NoteRepository = (*fakeNoteRepo)(nil)

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{}
}

func (f *fakeNoteRepo) Create(_ context.Context, note *model.Note) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, n := range f.notes {
		if n.Slug == note.Slug {
			return apperror.DuplicateSlug(note.Slug)
		}
	}
	f.nextID++
	note.ID = fmt.Sprintf("note-%d", f.nextID)
	note.CreatedAt = time.Now()
	note.UpdatedAt = note.CreatedAt
	stored := *note
	f.notes = append(f.notes, &stored)
	return nil
}

func (f *fakeNoteRepo) GetBySlug(_ context.Context, slug, authorID string) (*model.Note, error) {
	for _, n := range f.notes {
		if n.Slug == slug && n.AuthorID == authorID {
			copied := *n
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("note", slug)
}

func (f *fakeNoteRepo) ListByAuthor(_ context.Context, authorID string, _ repository.ListOptions) ([]model.Note, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []model.Note{}
	for _, n := range f.notes {
		if n.AuthorID == authorID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (f *fakeNoteRepo) SlugExists(_ context.Context, slug, excludeID string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	if f.skipSlugIndex {
		return false, nil
	}
	for _, n := range f.notes {
		if n.Slug == slug && n.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeNoteRepo) Update(_ context.Context, note *model.Note) error {
	for _, n := range f.notes {
		if n.Slug == note.Slug && n.ID != note.ID {
			return apperror.DuplicateSlug(note.Slug)
		}
	}
	for _, n := range f.notes {
		if n.ID == note.ID && n.AuthorID == note.AuthorID {
			note.UpdatedAt = time.Now()
			*n = *note
			return nil
		}
	}
	return apperror.NotFound("note", note.ID)
}

func (f *fakeNoteRepo) Delete(_ context.Context, slug, authorID string) error {
	for i, n := range f.notes {
		if n.Slug == slug && n.AuthorID == authorID {
			f.notes = append(f.notes[:i], f.notes[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("note", slug)
}

func (f *fakeNoteRepo) Count(_ context.Context) (int, error) {
	return len(f.notes), nil
}

type fakeUserRepo struct {
	users  map[string]*model.User // keyed by internal ID
	nextID int

	// set to a non-nil error to simulate a database failure
	createErr  error
	getByIDErr error
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.Conflict("user", user.Username)
		}
		if user.GitHubID != 0 && u.GitHubID == user.GitHubID {
			return apperror.Conflict("user", fmt.Sprintf("github:%d", user.GitHubID))
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeUserRepo) UpsertGitHubUser(ctx context.Context, user *model.User) error {
	if user.GitHubID == 0 {
		return apperror.ValidationFailed("github_id", "github id is required")
	}
	for _, u := range f.users {
		if u.GitHubID == user.GitHubID {
			*user = *u
			return nil
		}
	}
	return f.CreateUser(ctx, user)
}

// discardLogger keeps test output quiet.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
