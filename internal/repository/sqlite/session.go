package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/utility-lineups/internal/apperror"
	"github.com/sakif/utility-lineups/internal/dbx"
	"github.com/sakif/utility-lineups/internal/model"
	"github.com/sakif/utility-lineups/internal/repository"
)

var _ repository.SessionRepository = (*SessionDB)(nil)

// SessionDB implements repository.SessionRepository.
type SessionDB struct {
	q dbx.DBTX
}

func (r *SessionDB) Create(ctx context.Context, s *model.Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at, created_at, ip_address, user_agent)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.Token,
		s.UserID,
		s.ExpiresAt.UnixMilli(),
		s.CreatedAt,
		s.IPAddress,
		s.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating session for user %s: %w", s.UserID, err)
	}
	return nil
}

// GetValid looks the token up and joins its user in one query. Unknown and
// expired tokens both come back as the same NotFound, so nothing above this
// layer can tell them apart.
func (r *SessionDB) GetValid(ctx context.Context, token string, now time.Time) (*model.Session, *model.User, error) {
	var (
		s         model.Session
		expiresAt int64
		u         model.User
		githubID  sql.NullInt64
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT s.token, s.user_id, s.expires_at, s.created_at, s.ip_address, s.user_agent,
		        u.id, u.email, u.name, u.password_hash, u.email_verified, u.github_id, u.created_at, u.updated_at
		 FROM sessions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.token = ? AND s.expires_at > ?`,
		token, now.UnixMilli(),
	).Scan(
		&s.Token, &s.UserID, &expiresAt, &s.CreatedAt, &s.IPAddress, &s.UserAgent,
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.EmailVerified, &githubID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, apperror.NotFound("session", "")
		}
		return nil, nil, fmt.Errorf("sqlite: looking up session: %w", err)
	}

	s.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	if githubID.Valid {
		id := githubID.Int64
		u.GitHubID = &id
	}
	return &s, &u, nil
}

// Delete is idempotent: deleting an unknown token is not an error.
func (r *SessionDB) Delete(ctx context.Context, token string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("sqlite: deleting session: %w", err)
	}
	return nil
}

// DeleteExpired removes every session whose expiry is at or before now.
func (r *SessionDB) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting expired sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}
