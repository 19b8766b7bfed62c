package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/utility-lineups/internal/apperror"
	"github.com/sakif/utility-lineups/internal/model"
)

type stubAuthenticator struct {
	users map[string]*model.User
	err   error
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return nil, apperror.Unauthenticated()
}

func protectedEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(id))
	})
}

func TestRequireSession_PassesUserThrough(t *testing.T) {
	authn := stubAuthenticator{users: map[string]*model.User{"good": {ID: "u1"}}}
	h := RequireSession(authn, discardLogger())(protectedEcho())

	r := httptest.NewRequest(http.MethodGet, "/api/utilities", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "good"})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())
}

func TestRequireSession_Rejects401(t *testing.T) {
	authn := stubAuthenticator{users: map[string]*model.User{}}
	h := RequireSession(authn, discardLogger())(protectedEcho())

	for name, cookie := range map[string]*http.Cookie{
		"no cookie":     nil,
		"unknown token": {Name: SessionCookieName, Value: "abc"},
	} {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/utilities", nil)
			if cookie != nil {
				r.AddCookie(cookie)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			require.Equal(t, http.StatusUnauthorized, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "User not authenticated", body["error"])
			assert.Equal(t, "NOT_AUTHENTICATED", body["code"])
		})
	}
}

func TestRequireSession_StorageFailureIs500(t *testing.T) {
	h := RequireSession(stubAuthenticator{err: errors.New("db down")}, discardLogger())(protectedEcho())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "x"})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestUserFromContext_Empty(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)
}
