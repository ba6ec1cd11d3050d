// Package service contains the business logic of the notes application.
//
// THE THREE LAYERS:
//
//	Handler (HTTP)    → parses forms and JSON, writes pages and responses
//	Service (rules)   → validates, resolves slugs, enforces ownership
//	Repository (data) → reads and writes SQLite
//
// Services accept plain Go values, never *http.Request, so the same rules
// serve the HTML pages, the JSON API and the notesctl CLI.
//
// OWNERSHIP:
// Every NoteService method takes the requesting user's ID and passes it down
// to the repository, which filters on author_id in SQL. Someone else's note
// comes back as apperror.ErrNotFound. There is no "forbidden" case.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/repository"
	"github.com/sakif/notes/internal/slug"
)

const (
	MaxTitleLength = 100
	MaxTextLength  = 100000
)

// NoteInput is what a caller may set on a note. An empty Slug asks the
// service to derive one from Title.
type NoteInput struct {
	Title string
	Text  string
	Slug  string
}

// NoteService handles business logic for notes.
type NoteService struct {
	repo   repository.NoteRepository
	logger *slog.Logger
}

func NewNoteService(repo repository.NoteRepository, logger *slog.Logger) *NoteService {
	return &NoteService{repo: repo, logger: logger}
}

// List returns every note owned by userID in creation order.
func (s *NoteService) List(ctx context.Context, userID string) ([]model.Note, error) {
	notes, err := s.repo.ListByAuthor(ctx, userID, repository.ListOptions{})
	if err != nil {
		s.logger.Error("failed to list notes",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	return notes, nil
}

// Create validates in and stores a new note owned by userID.
//
// SLUG RULES:
//   - explicit slug → validated and used as typed
//   - empty slug    → derived from the title (transliterated)
//
// Either way the slug must be unused across ALL users. A taken slug is
// reported as apperror.DuplicateSlug on the "slug" field so the form can show
// it next to the input.
func (s *NoteService) Create(ctx context.Context, userID string, in NoteInput) (*model.Note, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if err := validateText(in.Text); err != nil {
		return nil, err
	}

	noteSlug, err := slug.Resolve(title, in.Slug)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSlugFree(ctx, noteSlug, ""); err != nil {
		return nil, err
	}

	note := &model.Note{
		Title:    title,
		Text:     in.Text,
		Slug:     noteSlug,
		AuthorID: userID,
	}

	// The pre-check above can race with another writer; the UNIQUE
	// constraint catches that and the repository returns the same
	// DuplicateSlug error.
	if err := s.repo.Create(ctx, note); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create note",
			slog.String("userID", userID),
			slog.String("slug", noteSlug),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating note: %w", err)
	}

	s.logger.Info("note created",
		slog.String("id", note.ID),
		slog.String("slug", note.Slug),
		slog.String("authorID", userID),
	)
	return note, nil
}

// Get returns the note with noteSlug if userID owns it.
func (s *NoteService) Get(ctx context.Context, userID, noteSlug string) (*model.Note, error) {
	noteSlug = strings.TrimSpace(noteSlug)
	if noteSlug == "" {
		return nil, apperror.NotFound("note", noteSlug)
	}
	return s.repo.GetBySlug(ctx, noteSlug, userID)
}

// Update replaces title, text and slug of a note userID owns.
//
// An empty in.Slug derives a fresh slug from the NEW title, same as Create.
// The uniqueness check skips the note itself so saving without changing the
// slug is fine.
func (s *NoteService) Update(ctx context.Context, userID, noteSlug string, in NoteInput) (*model.Note, error) {
	note, err := s.Get(ctx, userID, noteSlug)
	if err != nil {
		return nil, err
	}

	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if err := validateText(in.Text); err != nil {
		return nil, err
	}

	newSlug, err := slug.Resolve(title, in.Slug)
	if err != nil {
		return nil, err
	}
	if newSlug != note.Slug {
		if err := s.ensureSlugFree(ctx, newSlug, note.ID); err != nil {
			return nil, err
		}
	}

	oldSlug := note.Slug
	note.Title = title
	note.Text = in.Text
	note.Slug = newSlug

	if err := s.repo.Update(ctx, note); err != nil {
		if errors.Is(err, apperror.ErrConflict) || errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update note",
			slog.String("id", note.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating note: %w", err)
	}

	s.logger.Info("note updated",
		slog.String("id", note.ID),
		slog.String("oldSlug", oldSlug),
		slog.String("slug", note.Slug),
	)
	return note, nil
}

// Delete removes the note with noteSlug if userID owns it.
func (s *NoteService) Delete(ctx context.Context, userID, noteSlug string) error {
	noteSlug = strings.TrimSpace(noteSlug)
	if noteSlug == "" {
		return apperror.NotFound("note", noteSlug)
	}

	if err := s.repo.Delete(ctx, noteSlug, userID); err != nil {
		return err
	}

	s.logger.Info("note deleted",
		slog.String("slug", noteSlug),
		slog.String("authorID", userID),
	)
	return nil
}

func (s *NoteService) ensureSlugFree(ctx context.Context, noteSlug, excludeID string) error {
	taken, err := s.repo.SlugExists(ctx, noteSlug, excludeID)
	if err != nil {
		return fmt.Errorf("checking slug %q: %w", noteSlug, err)
	}
	if taken {
		return apperror.DuplicateSlug(noteSlug)
	}
	return nil
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperror.ValidationFailed("title", "title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	return title, nil
}

func validateText(text string) error {
	if utf8.RuneCountInString(text) > MaxTextLength {
		return apperror.ValidationFailed("text",
			fmt.Sprintf("text must be %d characters or less", MaxTextLength))
	}
	return nil
}
