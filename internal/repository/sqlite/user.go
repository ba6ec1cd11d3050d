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

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, password_hash, github_id, created_at, updated_at`

// scanUser reads a users row. github_id is nullable, so it goes through
// sql.NullInt64 and lands in the model as 0 when absent.
func scanUser(row rowScanner, u *model.User) error {
	var githubID sql.NullInt64
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&githubID,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return err
	}
	u.GitHubID = githubID.Int64
	return nil
}

// nullableGitHubID maps the zero value to NULL so password accounts do not
// collide on the UNIQUE github_id column.
func nullableGitHubID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

// CreateUser inserts a new account. A taken username comes back as
// apperror.Conflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, github_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.PasswordHash,
		nullableGitHubID(user.GitHubID),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if uniqueViolation(err, "users.username") {
			return apperror.Conflict("user", user.Username)
		}
		if uniqueViolation(err, "users.github_id") {
			return apperror.Conflict("user", fmt.Sprintf("github:%d", user.GitHubID))
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Username, err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err := scanUser(row, &u); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	return &u, nil
}

// GetUserByUsername retrieves a user for password login.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	if err := scanUser(row, &u); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", username, err)
	}

	return &u, nil
}

// UpsertGitHubUser creates or refreshes the account linked to user.GitHubID.
//
// First GitHub login → INSERT with a fresh internal ID.
// Later logins → keep the existing ID (notes reference it) and only refresh
// updated_at. The username picked on first login is not overwritten, so a
// GitHub rename cannot steal another account's username.
func (db *DB) UpsertGitHubUser(ctx context.Context, user *model.User) error {
	if user.GitHubID == 0 {
		return apperror.ValidationFailed("github_id", "github id is required")
	}

	var existing model.User
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, user.GitHubID)
	err := scanUser(row, &existing)

	switch {
	case err == nil:
		existing.UpdatedAt = time.Now()
		if _, err := db.conn.ExecContext(ctx,
			`UPDATE users SET updated_at = ? WHERE id = ?`,
			existing.UpdatedAt, existing.ID,
		); err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", existing.ID, err)
		}
		*user = existing
		return nil

	case err == sql.ErrNoRows:
		return db.CreateUser(ctx, user)

	default:
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", user.GitHubID, err)
	}
}
