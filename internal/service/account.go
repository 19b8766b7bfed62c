package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"

	"github.com/sakif/utility-lineups/internal/apperror"
	"github.com/sakif/utility-lineups/internal/auth"
	"github.com/sakif/utility-lineups/internal/model"
	"github.com/sakif/utility-lineups/internal/repository"
)

// AccountService owns sign-up, sign-in and email verification.
//
// DEPENDENCIES (injected via NewAccountService):
//   - users     repository.UserRepository → account rows
//   - sessions  *auth.SessionStore        → issue and revoke sessions
//   - passwords *auth.PasswordService     → bcrypt
//   - tokens    *auth.VerificationTokens  → signed verification links
//   - mailer    Mailer                    → link delivery
//
// VERIFICATION:
// A new email account starts unverified and can create one utility and one
// throwing point. Redeeming the emailed link flips emailVerified, which
// lifts the caps on the very next request. GitHub accounts start verified.
type AccountService struct {
	users     repository.UserRepository
	sessions  *auth.SessionStore
	passwords *auth.PasswordService
	tokens    *auth.VerificationTokens
	mailer    Mailer
	baseURL   string
	logger    *slog.Logger
}

func NewAccountService(
	users repository.UserRepository,
	sessions *auth.SessionStore,
	passwords *auth.PasswordService,
	tokens *auth.VerificationTokens,
	mailer Mailer,
	baseURL string,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:     users,
		sessions:  sessions,
		passwords: passwords,
		tokens:    tokens,
		mailer:    mailer,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger,
	}
}

type SignUpInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	RememberMe bool   `json:"rememberMe"`
}

type SignInInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// AuthResult bundles the user and the new session so the handler can set
// the cookie and respond in one step.
type AuthResult struct {
	User    *model.User
	Session *model.Session
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperror.ValidationFailed("email", "A valid email address is required")
	}
	return email, nil
}

// SignUp creates an unverified email account, signs it in and sends the
// verification link. A failed send is logged, not returned: the account
// exists and the user can ask for a new link.
func (s *AccountService) SignUp(ctx context.Context, in SignUpInput, meta auth.SessionMeta) (*AuthResult, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < auth.MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be at least %d characters", auth.MinPasswordLength))
	}
	if len(in.Password) > auth.MaxPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be at most %d bytes", auth.MaxPasswordLength))
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = email[:strings.IndexByte(email, '@')]
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/account: %w", err)
	}

	user := &model.User{Email: email, Name: name, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrConflict,
				Message: "An account with this email already exists",
				Field:   "email",
			}
		}
		return nil, fmt.Errorf("service/account: creating user: %w", err)
	}

	session, err := s.sessions.Create(ctx, user.ID, auth.SessionTTL(in.RememberMe), meta)
	if err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, user); err != nil {
		s.logger.Error("sending verification email failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("user signed up", slog.String("userID", user.ID))
	return &AuthResult{User: user, Session: session}, nil
}

// SignIn checks email and password. Unknown email and wrong password give the
// same error.
func (s *AccountService) SignIn(ctx context.Context, in SignInInput, meta auth.SessionMeta) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/account: loading user: %w", err)
	}
	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/account: %w", err)
	}

	session, err := s.sessions.Create(ctx, user.ID, auth.SessionTTL(in.RememberMe), meta)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Session: session}, nil
}

func (s *AccountService) SignOut(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

// VerifyEmail redeems a verification token. Redeeming an already used token
// succeeds again with no further effect.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperror.ValidationFailed("token", "Verification token is required")
	}

	userID, email, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, auth.ErrVerificationTokenExpired) {
			return nil, apperror.ValidationFailed("token", "Verification link has expired")
		}
		return nil, apperror.ValidationFailed("token", "Verification link is invalid")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ValidationFailed("token", "Verification link is invalid")
		}
		return nil, fmt.Errorf("service/account: loading user: %w", err)
	}
	// A link issued for a previous address must not verify the current one.
	if !strings.EqualFold(user.Email, email) {
		return nil, apperror.ValidationFailed("token", "Verification link is invalid")
	}

	flipped, err := s.users.MarkEmailVerified(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/account: verifying user: %w", err)
	}
	user.EmailVerified = true

	if flipped {
		s.logger.Info("email verified", slog.String("userID", user.ID))
	}
	return user, nil
}

// ResendVerification sends a fresh link to an unverified account.
func (s *AccountService) ResendVerification(ctx context.Context, user *model.User) error {
	if user == nil {
		return apperror.Unauthenticated()
	}
	if user.EmailVerified {
		return apperror.ValidationFailed("email", "Email is already verified")
	}
	return s.sendVerification(ctx, user)
}

func (s *AccountService) sendVerification(ctx context.Context, user *model.User) error {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return err
	}
	link := s.baseURL + "/api/auth/verify-email?token=" + url.QueryEscape(token)
	if err := s.mailer.SendVerification(ctx, user.Email, link); err != nil {
		return fmt.Errorf("service/account: sending verification to %s: %w", user.ID, err)
	}
	return nil
}

// GitHubSignIn links or creates the account for a GitHub profile and starts
// a session. GitHub accounts are always verified.
func (s *AccountService) GitHubSignIn(ctx context.Context, gh *auth.GitHubUser, meta auth.SessionMeta) (*AuthResult, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/account: GitHub user must not be nil")
	}

	ghID := gh.ID
	user := &model.User{
		Email:    gh.Email,
		Name:     gh.DisplayName(),
		GitHubID: &ghID,
	}
	if err := s.users.UpsertGitHub(ctx, user); err != nil {
		return nil, fmt.Errorf("service/account: upserting GitHub user %d: %w", ghID, err)
	}

	session, err := s.sessions.Create(ctx, user.ID, auth.DefaultSessionTTL, meta)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", gh.Login),
	)
	return &AuthResult{User: user, Session: session}, nil
}
