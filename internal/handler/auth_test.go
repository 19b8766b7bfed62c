package handler_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/utility-lineups/internal/auth"
	"github.com/sakif/utility-lineups/internal/handler"
)

type fakeGitHub struct {
	user *auth.GitHubUser
	err  error
}

func (f *fakeGitHub) AuthURL(state string) string {
	return "https://github.example/authorize?state=" + state
}

func (f *fakeGitHub) Exchange(ctx context.Context, code string) (*auth.GitHubUser, error) {
	return f.user, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestAuthHandler_GitHubDisabled(t *testing.T) {
	h := handler.NewAuthHandler(nil, nil, nil, nil, false, testLogger())

	rr := httptest.NewRecorder()
	h.HandleGitHubLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	h.HandleGitHubCallback(rr, httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=x&state=y", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAuthHandler_GitHubLogin(t *testing.T) {
	h := handler.NewAuthHandler(nil, nil, nil, &fakeGitHub{}, true, testLogger())

	rr := httptest.NewRecorder()
	h.HandleGitHubLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)

	var state *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == "oauth_state" {
			state = c
		}
	}
	require.NotNil(t, state, "state cookie must be set")
	assert.True(t, state.HttpOnly)
	assert.True(t, state.Secure)
	assert.True(t, strings.HasSuffix(rr.Header().Get("Location"), "state="+state.Value))
}

func TestAuthHandler_GitHubCallback_StateMismatch(t *testing.T) {
	h := handler.NewAuthHandler(nil, nil, nil, &fakeGitHub{}, false, testLogger())

	tests := []struct {
		name   string
		cookie string
		query  string
	}{
		{"no cookie", "", "?code=c&state=abc"},
		{"different state", "abc", "?code=c&state=xyz"},
		{"no state param", "abc", "?code=c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/github/callback"+tt.query, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "oauth_state", Value: tt.cookie})
			}
			rr := httptest.NewRecorder()
			h.HandleGitHubCallback(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestAuthHandler_GitHubCallback_Denied(t *testing.T) {
	h := handler.NewAuthHandler(nil, nil, nil, &fakeGitHub{}, false, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?state=abc&error=access_denied", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "abc"})
	rr := httptest.NewRecorder()
	h.HandleGitHubCallback(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/?auth=denied", rr.Header().Get("Location"))
}

func TestAuthHandler_LimitsWithoutUser(t *testing.T) {
	h := handler.NewAuthHandler(nil, nil, nil, nil, false, testLogger())

	rr := httptest.NewRecorder()
	h.HandleLimits(rr, httptest.NewRequest(http.MethodGet, "/api/user/limits", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"success":false,"error":"User not authenticated","code":"NOT_AUTHENTICATED"}`, rr.Body.String())
}
