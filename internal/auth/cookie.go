package auth

import (
	"net/http"
	"time"

	"github.com/sakif/utility-lineups/internal/model"
)

const (
	SessionCookieName    = "session"
	oauthStateCookieName = "oauth_state"
)

// SessionToken returns the raw session cookie value, or "" if absent.
func SessionToken(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// SetSessionCookie writes the session cookie. It expires together with the
// session row. Secure is only set in production, where we serve HTTPS.
func SetSessionCookie(w http.ResponseWriter, session *model.Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to drop the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetOAuthStateCookie stores the CSRF state for a GitHub sign-in. It lives
// ten minutes, long enough for the user to approve on GitHub.
func SetOAuthStateCookie(w http.ResponseWriter, state string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ConsumeOAuthState reports whether the state GitHub echoed back matches the
// cookie, and deletes the cookie either way. State is single-use.
func ConsumeOAuthState(w http.ResponseWriter, r *http.Request, secure bool) bool {
	c, err := r.Cookie(oauthStateCookieName)
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	if err != nil || c.Value == "" {
		return false
	}
	return r.URL.Query().Get("state") == c.Value
}
