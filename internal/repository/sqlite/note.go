package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/repository"
)

// compile-time check that *DB implements repository.NoteRepository
var _ repository.NoteRepository = (*DB)(nil)

const (
	defaultNoteListLimit = 1000
	maxNoteListLimit     = 1000
)

// noteColumns is the column list every SELECT on notes uses, in Scan order.
const noteColumns = `id, title, text, slug, author_id, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner, n *model.Note) error {
	return row.Scan(
		&n.ID,
		&n.Title,
		&n.Text,
		&n.Slug,
		&n.AuthorID,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
}

// Create inserts a new note. ID and timestamps are generated here and written
// back into the caller's struct.
//
// A taken slug fails the UNIQUE constraint and comes back as
// apperror.DuplicateSlug.
func (db *DB) Create(ctx context.Context, note *model.Note) error {
	note.ID = xid.New().String()
	now := time.Now()
	note.CreatedAt = now
	note.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO notes (id, title, text, slug, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		note.ID,
		note.Title,
		note.Text,
		note.Slug,
		note.AuthorID,
		note.CreatedAt,
		note.UpdatedAt,
	)
	if err != nil {
		if uniqueViolation(err, "notes.slug") {
			return apperror.DuplicateSlug(note.Slug)
		}
		return fmt.Errorf("sqlite: creating note: %w", err)
	}

	return nil
}

// GetBySlug returns the note with the given slug IF it belongs to authorID.
//
// SCOPED LOOKUP:
// The author filter is part of the WHERE clause rather than a check after the
// fetch. A foreign note simply produces no row, so callers get NotFound and
// learn nothing about whether the slug exists.
func (db *DB) GetBySlug(ctx context.Context, slug, authorID string) (*model.Note, error) {
	var note model.Note

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+noteColumns+`
		 FROM notes
		 WHERE slug = ? AND author_id = ?`,
		slug, authorID,
	)
	if err := scanNote(row, &note); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("note", slug)
		}
		return nil, fmt.Errorf("sqlite: getting note %s: %w", slug, err)
	}

	return &note, nil
}

// ListByAuthor returns the author's notes in insertion order.
func (db *DB) ListByAuthor(ctx context.Context, authorID string, opts repository.ListOptions) ([]model.Note, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultNoteListLimit
	}
	if limit > maxNoteListLimit {
		limit = maxNoteListLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+noteColumns+`
		 FROM notes
		 WHERE author_id = ?
		 ORDER BY rowid ASC
		 LIMIT ? OFFSET ?`,
		authorID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notes: %w", err)
	}
	defer rows.Close()

	notes := make([]model.Note, 0)
	for rows.Next() {
		var n model.Note
		if err := scanNote(rows, &n); err != nil {
			return nil, fmt.Errorf("sqlite: scanning note row: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating notes: %w", err)
	}

	return notes, nil
}

// SlugExists checks the slug against every note in the store, regardless of
// author. excludeID lets an update keep its own slug.
func (db *DB) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM notes WHERE slug = ? AND id != ?)`,
		slug, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking slug %s: %w", slug, err)
	}
	return exists, nil
}

// Update overwrites title, text and slug of a note owned by note.AuthorID.
//
// author_id is in the WHERE clause and never in the SET list: the author of a
// note cannot change, and a mismatched author matches zero rows → NotFound.
func (db *DB) Update(ctx context.Context, note *model.Note) error {
	note.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE notes
		 SET title = ?, text = ?, slug = ?, updated_at = ?
		 WHERE id = ? AND author_id = ?`,
		note.Title,
		note.Text,
		note.Slug,
		note.UpdatedAt,
		note.ID,
		note.AuthorID,
	)
	if err != nil {
		if uniqueViolation(err, "notes.slug") {
			return apperror.DuplicateSlug(note.Slug)
		}
		return fmt.Errorf("sqlite: updating note %s: %w", note.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("note", note.Slug)
	}

	return nil
}

// Delete removes the author's note with the given slug.
func (db *DB) Delete(ctx context.Context, slug, authorID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM notes WHERE slug = ? AND author_id = ?`,
		slug, authorID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting note %s: %w", slug, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("note", slug)
	}

	return nil
}

// Count returns the number of notes across all authors.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting notes: %w", err)
	}
	return n, nil
}
