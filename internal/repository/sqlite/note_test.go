package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/repository"
)

// TESTING WITH IN-MEMORY SQLITE:
// ":memory:" gives each test a fresh, isolated database that disappears when
// the connection closes. t.Helper() makes failures point at the caller's line.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestNote(t *testing.T, db *DB, author *model.User, title, slug string) *model.Note {
	t.Helper()
	note := &model.Note{Title: title, Text: "text of " + title, Slug: slug, AuthorID: author.ID}
	if err := db.Create(context.Background(), note); err != nil {
		t.Fatalf("failed to create test note: %v", err)
	}
	return note
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestNoteCreate(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "author")

	note := &model.Note{Title: "Заголовок", Text: "Текст", Slug: "note-slug", AuthorID: author.ID}
	if err := db.Create(context.Background(), note); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if note.ID == "" {
		t.Error("Create() did not set note.ID")
	}
	if note.CreatedAt.IsZero() || note.UpdatedAt.IsZero() {
		t.Error("Create() did not set timestamps")
	}

	found, err := db.GetBySlug(context.Background(), "note-slug", author.ID)
	if err != nil {
		t.Fatalf("GetBySlug() error = %v", err)
	}
	if found.Title != "Заголовок" || found.Text != "Текст" || found.AuthorID != author.ID {
		t.Errorf("persisted note = %+v, want the created values", found)
	}
}

func TestNoteCreate_DuplicateSlug(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	createTestNote(t, db, alice, "first", "shared")

	// Uniqueness is global: a different author can't take the slug either.
	err := db.Create(context.Background(), &model.Note{Title: "second", Slug: "shared", AuthorID: bob.ID})

	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() error = %v, want ErrConflict", err)
	}
	if apperror.FieldOf(err) != "slug" {
		t.Errorf("FieldOf = %q, want slug", apperror.FieldOf(err))
	}
	if n, _ := db.Count(context.Background()); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestNoteCreate_UnknownAuthor(t *testing.T) {
	db := newTestDB(t)

	err := db.Create(context.Background(), &model.Note{Title: "t", Slug: "s", AuthorID: "ghost"})
	if err == nil {
		t.Fatal("Create() should fail the author foreign key")
	}
}

// =========================================================================
// SCOPED LOOKUP TESTS
// =========================================================================

func TestGetBySlug_OtherAuthorIsNotFound(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	createTestNote(t, db, alice, "private", "alices-note")

	_, err := db.GetBySlug(context.Background(), "alices-note", bob.ID)

	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetBySlug() error = %v, want ErrNotFound", err)
	}
}

func TestGetBySlug_Missing(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")

	_, err := db.GetBySlug(context.Background(), "nope", alice.ID)

	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetBySlug() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestListByAuthor_OnlyOwnNotesInInsertionOrder(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	createTestNote(t, db, alice, "a1", "a1")
	createTestNote(t, db, bob, "b1", "b1")
	createTestNote(t, db, alice, "a2", "a2")
	createTestNote(t, db, alice, "a3", "a3")

	notes, err := db.ListByAuthor(context.Background(), alice.ID, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListByAuthor() error = %v", err)
	}

	want := []string{"a1", "a2", "a3"}
	if len(notes) != len(want) {
		t.Fatalf("len = %d, want %d", len(notes), len(want))
	}
	for i, n := range notes {
		if n.Slug != want[i] {
			t.Errorf("notes[%d].Slug = %q, want %q", i, n.Slug, want[i])
		}
		if n.AuthorID != alice.ID {
			t.Errorf("notes[%d] belongs to %q", i, n.AuthorID)
		}
	}
}

func TestListByAuthor_Empty(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")

	notes, err := db.ListByAuthor(context.Background(), alice.ID, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListByAuthor() error = %v", err)
	}
	// A non-nil empty slice encodes as [] in JSON, not null.
	if notes == nil || len(notes) != 0 {
		t.Errorf("ListByAuthor() = %#v, want empty non-nil slice", notes)
	}
}

func TestListByAuthor_Pagination(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	for _, s := range []string{"n1", "n2", "n3", "n4"} {
		createTestNote(t, db, alice, s, s)
	}

	page, err := db.ListByAuthor(context.Background(), alice.ID, repository.ListOptions{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("ListByAuthor() error = %v", err)
	}
	if len(page) != 2 || page[0].Slug != "n2" || page[1].Slug != "n3" {
		t.Errorf("page = %v, want n2,n3", slugsOf(page))
	}
}

func slugsOf(notes []model.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Slug
	}
	return out
}

// =========================================================================
// SLUG EXISTS TESTS
// =========================================================================

func TestSlugExists(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	note := createTestNote(t, db, alice, "t", "taken")

	tests := []struct {
		name      string
		slug      string
		excludeID string
		want      bool
	}{
		{"taken slug", "taken", "", true},
		{"free slug", "free", "", false},
		{"own slug excluded", "taken", note.ID, false},
		{"other note excluded", "taken", "some-other-id", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.SlugExists(context.Background(), tt.slug, tt.excludeID)
			if err != nil {
				t.Fatalf("SlugExists() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("SlugExists(%q, %q) = %v, want %v", tt.slug, tt.excludeID, got, tt.want)
			}
		})
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestNoteUpdate(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	note := createTestNote(t, db, alice, "old", "old-slug")

	note.Title = "new"
	note.Text = "new text"
	note.Slug = "new-slug"
	if err := db.Update(context.Background(), note); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, err := db.GetBySlug(context.Background(), "new-slug", alice.ID)
	if err != nil {
		t.Fatalf("GetBySlug() error = %v", err)
	}
	if found.Title != "new" || found.Text != "new text" {
		t.Errorf("found = %+v", found)
	}
	if _, err := db.GetBySlug(context.Background(), "old-slug", alice.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("old slug still resolves: err = %v", err)
	}
}

func TestNoteUpdate_WrongAuthorIsNotFound(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	note := createTestNote(t, db, alice, "mine", "mine")

	hijack := *note
	hijack.AuthorID = bob.ID
	hijack.Title = "stolen"

	if err := db.Update(context.Background(), &hijack); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Update() error = %v, want ErrNotFound", err)
	}

	found, _ := db.GetBySlug(context.Background(), "mine", alice.ID)
	if found.Title != "mine" {
		t.Errorf("Title = %q, note was modified by a non-author", found.Title)
	}
}

func TestNoteUpdate_DuplicateSlug(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	createTestNote(t, db, alice, "a", "a")
	b := createTestNote(t, db, alice, "b", "b")

	b.Slug = "a"
	err := db.Update(context.Background(), b)

	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Update() error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestNoteDelete(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	createTestNote(t, db, alice, "bye", "bye")

	if err := db.Delete(context.Background(), "bye", alice.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if n, _ := db.Count(context.Background()); n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
}

func TestNoteDelete_WrongAuthorIsNotFound(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	createTestNote(t, db, alice, "keep", "keep")

	if err := db.Delete(context.Background(), "keep", bob.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Delete() error = %v, want ErrNotFound", err)
	}
	if n, _ := db.Count(context.Background()); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}
