// Package auth handles who the caller is: server-side sessions carried in a
// cookie, password hashing, email verification tokens and GitHub sign-in.
//
// SESSION FLOW:
//  1. Sign-in (password or GitHub) calls SessionStore.Create, which persists a
//     random token with an expiry and returns it.
//  2. The handler writes the token into the "session" HttpOnly cookie.
//  3. Every protected request presents the cookie; SessionStore.Validate looks
//     the token up and checks expiry in the same query.
//  4. Sign-out calls SessionStore.Destroy and clears the cookie.
//
// Unlike a signed JWT, a session row can be revoked instantly by deleting it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/utility-lineups/internal/apperror"
	"github.com/sakif/utility-lineups/internal/model"
	"github.com/sakif/utility-lineups/internal/repository"
)

const (
	// DefaultSessionTTL applies to a normal sign-in.
	DefaultSessionTTL = 7 * 24 * time.Hour
	// RememberMeSessionTTL applies when the user ticks "remember me".
	RememberMeSessionTTL = 30 * 24 * time.Hour
)

// SessionTTL picks the lifetime for a new session.
func SessionTTL(rememberMe bool) time.Duration {
	if rememberMe {
		return RememberMeSessionTTL
	}
	return DefaultSessionTTL
}

// SessionMeta is optional client information recorded with a session.
type SessionMeta struct {
	IPAddress string
	UserAgent string
}

// SessionResult is the outcome of validating a token. A failed validation
// has Success=false and both UserID and User nil, whatever the cause.
type SessionResult struct {
	Success bool        `json:"success"`
	UserID  *string     `json:"userId"`
	User    *model.User `json:"user"`
}

// VerifiedSessionResult extends SessionResult with the user's verification
// state. IsEmailVerified is false whenever Success is false.
type VerifiedSessionResult struct {
	SessionResult
	IsEmailVerified bool `json:"isEmailVerified"`
}

// SessionStore validates, creates and destroys sessions.
type SessionStore struct {
	sessions repository.SessionRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewSessionStore(sessions repository.SessionRepository, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// Validate resolves token to its user.
//
// A missing, unknown or expired token is not an error: it returns an
// unsuccessful result. Only a persistence failure returns a non-nil error.
func (s *SessionStore) Validate(ctx context.Context, token string) (SessionResult, error) {
	if token == "" {
		return SessionResult{}, nil
	}

	_, user, err := s.sessions.GetValid(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return SessionResult{}, nil
		}
		return SessionResult{}, fmt.Errorf("auth: validating session: %w", err)
	}

	userID := user.ID
	return SessionResult{Success: true, UserID: &userID, User: user}, nil
}

// Create starts a session for userID lasting ttl. The token is a random
// (version 4) UUID.
func (s *SessionStore) Create(ctx context.Context, userID string, ttl time.Duration, meta SessionMeta) (*model.Session, error) {
	token, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("auth: generating session token: %w", err)
	}

	now := s.now()
	session := &model.Session{
		Token:     token.String(),
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now.UTC(),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("auth: creating session: %w", err)
	}

	s.logger.Debug("session created",
		slog.String("userID", userID),
		slog.Time("expiresAt", session.ExpiresAt),
	)
	return session, nil
}

// Destroy deletes the session. Unknown tokens are ignored.
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("auth: destroying session: %w", err)
	}
	return nil
}

// Sweep removes expired sessions. Validation never depends on it having run.
func (s *SessionStore) Sweep(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("auth: sweeping sessions: %w", err)
	}
	return n, nil
}

// ValidateSession reads the session cookie from r and validates it.
func (s *SessionStore) ValidateSession(r *http.Request) (SessionResult, error) {
	return s.Validate(r.Context(), SessionToken(r))
}

// ValidateSessionWithVerification is ValidateSession plus the user's
// emailVerified flag.
func (s *SessionStore) ValidateSessionWithVerification(r *http.Request) (VerifiedSessionResult, error) {
	res, err := s.ValidateSession(r)
	if err != nil {
		return VerifiedSessionResult{}, err
	}
	return VerifiedSessionResult{
		SessionResult:   res,
		IsEmailVerified: res.Success && res.User.EmailVerified,
	}, nil
}
