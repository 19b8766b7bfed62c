package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/utility-lineups/internal/apperror"
	"github.com/sakif/utility-lineups/internal/auth"
	"github.com/sakif/utility-lineups/internal/authz"
	"github.com/sakif/utility-lineups/internal/service"
)

// GitHubAuth is the OAuth flow. *auth.GitHubProvider implements it.
type GitHubAuth interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// LimitsChecker reports a user's creation limits. *authz.Policy implements it.
type LimitsChecker interface {
	CheckUnverifiedUserLimits(ctx context.Context, userID string) (authz.Limits, error)
}

// AuthHandler manages sign-up, sign-in, sessions, email verification and the
// GitHub OAuth flow.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignUp / HandleSignIn → create a session and set the cookie
//   - HandleSignOut              → revoke the session and clear the cookie
//   - HandleSession              → report who the cookie belongs to
//   - HandleVerifyEmail          → redeem a verification link
//   - HandleGitHubLogin/Callback → OAuth sign-in
//   - HandleLimits               → the caller's creation limits
type AuthHandler struct {
	accounts *service.AccountService
	sessions *auth.SessionStore
	limits   LimitsChecker
	github   GitHubAuth
	secure   bool
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil when OAuth is not
// configured; the GitHub routes then answer 404. secure marks cookies Secure
// and should be true whenever the site is served over HTTPS.
func NewAuthHandler(
	accounts *service.AccountService,
	sessions *auth.SessionStore,
	limits LimitsChecker,
	github GitHubAuth,
	secure bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		sessions: sessions,
		limits:   limits,
		github:   github,
		secure:   secure,
		logger:   logger,
	}
}

func sessionMeta(r *http.Request) auth.SessionMeta {
	return auth.SessionMeta{IPAddress: r.RemoteAddr, UserAgent: r.UserAgent()}
}

// HandleSignUp creates an email account.
//
// HTTP: POST /api/auth/signup
// REQUEST BODY: {"email": "...", "password": "...", "name": "...", "rememberMe": false}
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var in service.SignUpInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.accounts.SignUp(r.Context(), in, sessionMeta(r))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	auth.SetSessionCookie(w, res.Session, h.secure)
	writeData(w, http.StatusCreated, map[string]any{"user": res.User})
}

// HandleSignIn checks a password and starts a session.
//
// HTTP: POST /api/auth/signin
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var in service.SignInInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.accounts.SignIn(r.Context(), in, sessionMeta(r))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	auth.SetSessionCookie(w, res.Session, h.secure)
	writeData(w, http.StatusOK, map[string]any{"user": res.User})
}

// HandleSignOut revokes the current session. It succeeds with or without a
// session so a stale client can always clear its cookie.
//
// HTTP: POST /api/auth/signout
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.SignOut(r.Context(), auth.SessionToken(r)); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	auth.ClearSessionCookie(w, h.secure)
	writeData(w, http.StatusOK, nil)
}

// HandleSession reports the current session. An absent or expired session is
// a 200 with success=false, not an error: the frontend calls this on load.
//
// HTTP: GET /api/auth/session
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	res, err := h.sessions.ValidateSessionWithVerification(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleVerifyEmail redeems a verification token from the query string (the
// emailed link) or a JSON body {"token": "..."}.
//
// HTTP: GET|POST /api/auth/verify-email
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" && r.Method == http.MethodPost {
		var body struct {
			Token string `json:"token"`
		}
		if err := decodeJSON(w, r, &body); err != nil {
			writeError(w, err)
			return
		}
		token = body.Token
	}

	user, err := h.accounts.VerifyEmail(r.Context(), token)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"user": user})
}

// HandleResendVerification mails a fresh link to the signed-in user.
//
// HTTP: POST /api/auth/resend-verification
// Auth: Required
func (h *AuthHandler) HandleResendVerification(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	if err := h.accounts.ResendVerification(r.Context(), user); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

// HandleLimits returns the caller's creation limits. Verified users report
// -1 counts, meaning no cap applies.
//
// HTTP: GET /api/user/limits
// Auth: Required
func (h *AuthHandler) HandleLimits(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated())
		return
	}

	limits, err := h.limits.CheckUnverifiedUserLimits(r.Context(), userID)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, limits)
}

// HandleGitHubLogin redirects the browser to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state goes into a short-lived cookie and the authorization URL.
// The callback only proceeds if GitHub echoes the same value back.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		http.NotFound(w, r)
		return
	}

	state := xid.New().String()
	auth.SetOAuthStateCookie(w, state, h.secure)
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth sign-in.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub profile
//  3. Link or create the account and start a session
//  4. Redirect to the app
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		http.NotFound(w, r)
		return
	}

	if !auth.ConsumeOAuthState(w, r, h.secure) {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	res, err := h.accounts.GitHubSignIn(r.Context(), ghUser, sessionMeta(r))
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	auth.SetSessionCookie(w, res.Session, h.secure)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
