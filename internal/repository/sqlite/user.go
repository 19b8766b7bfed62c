package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/utility-lineups/internal/apperror"
	"github.com/sakif/utility-lineups/internal/dbx"
	"github.com/sakif/utility-lineups/internal/model"
	"github.com/sakif/utility-lineups/internal/repository"
)

var _ repository.UserRepository = (*UserDB)(nil)

// UserDB implements repository.UserRepository.
type UserDB struct {
	q dbx.DBTX
}

const userColumns = `id, email, name, password_hash, email_verified, github_id, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.EmailVerified,
		&githubID,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if githubID.Valid {
		id := githubID.Int64
		u.GitHubID = &id
	}
	return &u, nil
}

// Create inserts a new user. A duplicate email is apperror.ErrConflict.
func (r *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = now
	user.UpdatedAt = now

	var githubID sql.NullInt64
	if user.GitHubID != nil {
		githubID = sql.NullInt64{Int64: *user.GitHubID, Valid: true}
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.EmailVerified,
		githubID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (r *UserDB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

func (r *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// UpsertGitHub creates or refreshes the account linked to user.GitHubID.
//
// Lookup order: github_id first, then email, so an existing email account
// gets linked rather than duplicated. Linking marks the email verified since
// GitHub only exposes verified addresses.
func (r *UserDB) UpsertGitHub(ctx context.Context, user *model.User) error {
	if user.GitHubID == nil {
		return fmt.Errorf("sqlite: upserting github user: missing github id")
	}

	existing, err := scanUser(r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE github_id = ? OR (email = ? AND github_id IS NULL)
		 ORDER BY github_id IS NULL LIMIT 1`,
		*user.GitHubID, strings.ToLower(user.Email),
	))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", *user.GitHubID, err)
	}

	if existing == nil {
		user.EmailVerified = true
		return r.Create(ctx, user)
	}

	now := time.Now().UTC()
	name := user.Name
	if name == "" {
		name = existing.Name
	}
	_, err = r.q.ExecContext(ctx,
		`UPDATE users SET name = ?, github_id = ?, email_verified = 1, updated_at = ?
		 WHERE id = ?`,
		name, *user.GitHubID, now, existing.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", existing.ID, err)
	}

	ghID := *user.GitHubID
	*user = *existing
	user.Name = name
	user.GitHubID = &ghID
	user.EmailVerified = true
	user.UpdatedAt = now
	return nil
}

// MarkEmailVerified flips email_verified once. The WHERE clause makes the
// flip one-way: an already-verified row is left untouched and reported as
// such.
func (r *UserDB) MarkEmailVerified(ctx context.Context, id string) (bool, error) {
	result, err := r.q.ExecContext(ctx,
		`UPDATE users SET email_verified = 1, updated_at = ?
		 WHERE id = ? AND email_verified = 0`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: verifying user %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	// Nothing changed: either already verified or no such user.
	if _, err := r.GetUserByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// isUniqueViolation matches SQLite's constraint error text; modernc does not
// export a typed error code we can compare against portably.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
