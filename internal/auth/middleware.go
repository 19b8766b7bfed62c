package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/utility-lineups/internal/apperror"
	"github.com/sakif/utility-lineups/internal/model"
)

// contextKey is unexported so no other package can read or overwrite the
// authenticated user in a request context.
type contextKey string

const userKey contextKey = "user"

// Authenticator turns a session token into a user. authz.Gate implements it;
// a failed lookup must wrap apperror.ErrUnauthenticated.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// RequireSession rejects requests without a valid session cookie and stores
// the session's user in the request context for the handlers behind it.
//
// Invalid sessions get 401 with the body the frontend checks for:
//
//	{"success":false,"error":"User not authenticated","code":"NOT_AUTHENTICATED"}
//
// A storage failure while validating is a 500, not a 401.
func RequireSession(authn Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authn.Authenticate(r.Context(), SessionToken(r))
			if err != nil {
				if errors.Is(err, apperror.ErrUnauthenticated) {
					writeDenied(w, http.StatusUnauthorized, apperror.Unauthenticated().Message, apperror.KindNotAuthenticated)
					return
				}
				logger.Error("session validation failed",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				writeDenied(w, http.StatusInternalServerError, "Unknown error", apperror.KindInternal)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user RequireSession stored, if any.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// UserIDFromContext is UserFromContext for callers that only need the ID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	u, ok := UserFromContext(ctx)
	if !ok {
		return "", false
	}
	return u.ID, true
}

func writeDenied(w http.ResponseWriter, status int, message string, kind apperror.Kind) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Success bool          `json:"success"`
		Error   string        `json:"error"`
		Code    apperror.Kind `json:"code"`
	}{false, message, kind})
}
