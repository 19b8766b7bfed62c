package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sakif/utility-lineups/internal/apperror"
	"github.com/sakif/utility-lineups/internal/auth"
)

func signUp(t *testing.T, env *testEnv, email string) *AuthResult {
	t.Helper()
	res, err := env.accounts.SignUp(context.Background(), SignUpInput{
		Email:    email,
		Password: "correct horse",
	}, auth.SessionMeta{UserAgent: "test"})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	return res
}

// tokenFromLink pulls the token query parameter out of a mailed link.
func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parsing link %q: %v", link, err)
	}
	return u.Query().Get("token")
}

// =========================================================================
// SignUp / SignIn / SignOut
// =========================================================================

func TestSignUp_CreatesUnverifiedAccountWithSession(t *testing.T) {
	env := newTestEnv(t)
	res := signUp(t, env, "  Alice@Example.com ")

	if res.User.EmailVerified {
		t.Error("new email accounts must start unverified")
	}
	if res.User.Email != "alice@example.com" {
		t.Errorf("Email = %q, want normalized", res.User.Email)
	}
	if res.User.Name != "alice" {
		t.Errorf("Name = %q, want the email local part", res.User.Name)
	}
	if got := res.Session.ExpiresAt.Sub(res.Session.CreatedAt); got < auth.DefaultSessionTTL-time.Minute {
		t.Errorf("session lifetime = %v, want about %v", got, auth.DefaultSessionTTL)
	}

	sr, err := env.sessions.Validate(context.Background(), res.Session.Token)
	if err != nil || !sr.Success {
		t.Fatalf("new session does not validate: %+v %v", sr, err)
	}

	mail := env.mailer.last(t)
	if mail.to != "alice@example.com" {
		t.Errorf("verification sent to %q", mail.to)
	}
	if !strings.HasPrefix(mail.link, "http://localhost:8080/api/auth/verify-email?token=") {
		t.Errorf("link = %q", mail.link)
	}
}

func TestSignUp_Validation(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name  string
		in    SignUpInput
		field string
	}{
		{"bad email", SignUpInput{Email: "not-an-email", Password: "longenough"}, "email"},
		{"display name form", SignUpInput{Email: "Alice <a@example.com>", Password: "longenough"}, "email"},
		{"short password", SignUpInput{Email: "a@example.com", Password: "short"}, "password"},
		{"long password", SignUpInput{Email: "a@example.com", Password: strings.Repeat("x", 73)}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.accounts.SignUp(context.Background(), tt.in, auth.SessionMeta{})
			wantKind(t, err, apperror.KindValidation)
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.field)
			}
		})
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	signUp(t, env, "alice@example.com")

	_, err := env.accounts.SignUp(context.Background(), SignUpInput{Email: "ALICE@example.com", Password: "another one"}, auth.SessionMeta{})
	wantKind(t, err, apperror.KindConflict)
}

func TestSignUp_MailFailureDoesNotFailSignUp(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.fails = errors.New("smtp down")

	signUp(t, env, "alice@example.com")
}

func TestSignIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signUp(t, env, "alice@example.com")

	res, err := env.accounts.SignIn(ctx, SignInInput{Email: "alice@example.com", Password: "correct horse", RememberMe: true}, auth.SessionMeta{})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if got := res.Session.ExpiresAt.Sub(res.Session.CreatedAt); got < auth.RememberMeSessionTTL-time.Minute {
		t.Errorf("remember-me session lifetime = %v", got)
	}

	_, err = env.accounts.SignIn(ctx, SignInInput{Email: "alice@example.com", Password: "wrong horse"}, auth.SessionMeta{})
	wantKind(t, err, apperror.KindNotAuthenticated)
	wantMessage(t, err, "Invalid email or password")

	_, err = env.accounts.SignIn(ctx, SignInInput{Email: "nobody@example.com", Password: "correct horse"}, auth.SessionMeta{})
	wantMessage(t, err, "Invalid email or password")
}

func TestSignOut_RevokesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := signUp(t, env, "alice@example.com")

	if err := env.accounts.SignOut(ctx, res.Session.Token); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	sr, err := env.sessions.Validate(ctx, res.Session.Token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if sr.Success {
		t.Error("session still valid after sign-out")
	}
}

// =========================================================================
// VerifyEmail
// =========================================================================

func TestVerifyEmail_LiftsCapsImmediately(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := signUp(t, env, "alice@example.com")

	// Scenario: at the cap, verify, then create more on the next request.
	env.utility(t, res.User)
	_, err := env.utilities.Create(ctx, res.User, validUtilityInput())
	wantKind(t, err, apperror.KindVerificationRequired)

	user, err := env.accounts.VerifyEmail(ctx, tokenFromLink(t, env.mailer.last(t).link))
	if err != nil {
		t.Fatalf("VerifyEmail() error = %v", err)
	}
	if !user.EmailVerified {
		t.Fatal("VerifyEmail() returned an unverified user")
	}

	sr, err := env.sessions.Validate(ctx, res.Session.Token)
	if err != nil || !sr.User.EmailVerified {
		t.Fatalf("session user not verified after redemption: %+v %v", sr.User, err)
	}
	if _, err := env.utilities.Create(ctx, sr.User, validUtilityInput()); err != nil {
		t.Fatalf("Create() after verification error = %v", err)
	}
}

func TestVerifyEmail_RedeemTwiceSucceeds(t *testing.T) {
	env := newTestEnv(t)
	signUp(t, env, "alice@example.com")
	token := tokenFromLink(t, env.mailer.last(t).link)

	for i := 0; i < 2; i++ {
		if _, err := env.accounts.VerifyEmail(context.Background(), token); err != nil {
			t.Fatalf("redemption %d error = %v", i+1, err)
		}
	}
}

func TestVerifyEmail_BadTokens(t *testing.T) {
	env := newTestEnv(t)
	res := signUp(t, env, "alice@example.com")

	expired, err := env.tokens.IssueWithDuration(res.User.ID, res.User.Email, -time.Minute)
	if err != nil {
		t.Fatalf("IssueWithDuration: %v", err)
	}
	wrongEmail, _ := env.tokens.Issue(res.User.ID, "old@example.com")
	unknownUser, _ := env.tokens.Issue("no-such-user", "ghost@example.com")

	tests := []struct {
		name, token, message string
	}{
		{"empty", "", "Verification token is required"},
		{"garbage", "not.a.jwt", "Verification link is invalid"},
		{"expired", expired, "Verification link has expired"},
		{"email changed", wrongEmail, "Verification link is invalid"},
		{"unknown user", unknownUser, "Verification link is invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.accounts.VerifyEmail(context.Background(), tt.token)
			wantKind(t, err, apperror.KindValidation)
			wantMessage(t, err, tt.message)
		})
	}
}

func TestResendVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := signUp(t, env, "alice@example.com")

	if err := env.accounts.ResendVerification(ctx, res.User); err != nil {
		t.Fatalf("ResendVerification() error = %v", err)
	}
	if len(env.mailer.sent) != 2 {
		t.Errorf("sent %d mails, want 2", len(env.mailer.sent))
	}

	verified := env.user(t, "bob@example.com", true)
	err := env.accounts.ResendVerification(ctx, verified)
	wantKind(t, err, apperror.KindValidation)
}

// =========================================================================
// GitHubSignIn
// =========================================================================

func TestGitHubSignIn_NewUserIsVerified(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.accounts.GitHubSignIn(context.Background(), &auth.GitHubUser{
		ID: 42, Login: "octocat", Email: "octocat@github.com",
	}, auth.SessionMeta{})
	if err != nil {
		t.Fatalf("GitHubSignIn() error = %v", err)
	}
	if !res.User.EmailVerified {
		t.Error("GitHub accounts must arrive verified")
	}
	if res.User.Name != "octocat" {
		t.Errorf("Name = %q, want login fallback", res.User.Name)
	}
	if res.Session == nil || res.Session.Token == "" {
		t.Error("no session issued")
	}
}

func TestGitHubSignIn_LinksExistingEmailAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	email := signUp(t, env, "octocat@github.com")

	res, err := env.accounts.GitHubSignIn(ctx, &auth.GitHubUser{ID: 7, Login: "octocat", Email: "octocat@github.com"}, auth.SessionMeta{})
	if err != nil {
		t.Fatalf("GitHubSignIn() error = %v", err)
	}
	if res.User.ID != email.User.ID {
		t.Errorf("GitHub sign-in created %s instead of linking %s", res.User.ID, email.User.ID)
	}
	if !res.User.EmailVerified {
		t.Error("linking GitHub should verify the account")
	}
}

func TestGitHubSignIn_NilUser(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.accounts.GitHubSignIn(context.Background(), nil, auth.SessionMeta{}); err == nil {
		t.Fatal("GitHubSignIn(nil) should fail")
	}
}

