package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/utility-lineups/internal/apperror"
	"github.com/sakif/utility-lineups/internal/authz"
)

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   apperror.Kind
		wantMsg    string
	}{
		{"unauthenticated", apperror.Unauthenticated(), http.StatusUnauthorized, apperror.KindNotAuthenticated, "User not authenticated"},
		{"quota", authz.QuotaExceeded(authz.KindUtility), http.StatusForbidden, apperror.KindVerificationRequired, "Please verify your email to create more than one utility"},
		{"foreign target", apperror.Forbidden(authz.TargetDeniedMessage(authz.KindMedia)), http.StatusForbidden, apperror.KindAccessDenied, "Media not found or access denied"},
		{"missing target", apperror.NotFoundMessage(authz.TargetDeniedMessage(authz.KindThrowingPoint)), http.StatusNotFound, apperror.KindNotFound, "Throwing point not found or access denied"},
		{"validation", apperror.ValidationFailed("title", "Title is required"), http.StatusBadRequest, apperror.KindValidation, "Title is required"},
		{"conflict", apperror.Conflict("user", "a@b.c"), http.StatusConflict, apperror.KindConflict, ""},
		{"wrapped", fmt.Errorf("service: %w", apperror.Forbidden("nope")), http.StatusForbidden, apperror.KindAccessDenied, "nope"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, apperror.KindInternal, "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			body := decodeError(t, rr)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, string(tt.wantCode), body["code"])
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, body["error"])
			}
			assert.NotContains(t, body["error"], "disk on fire")
		})
	}
}

func TestWriteError_RequiresVerificationOnlyOnQuota(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, authz.QuotaExceeded(authz.KindThrowingPoint))
	body := decodeError(t, rr)
	assert.Equal(t, true, body["requiresVerification"])
	assert.Equal(t, "Please verify your email to create more than one throwing point", body["error"])

	rr = httptest.NewRecorder()
	writeError(rr, apperror.Forbidden("Utility not found or access denied"))
	body = decodeError(t, rr)
	_, present := body["requiresVerification"]
	assert.False(t, present, "ownership denials must not ask for verification")
}

func TestWriteData(t *testing.T) {
	rr := httptest.NewRecorder()
	writeData(rr, http.StatusCreated, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"success":true,"data":{"id":"abc"}}`, rr.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	t.Run("malformed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":`))
		var dst struct{ Title string }
		err := decodeJSON(httptest.NewRecorder(), req, &dst)
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	})

	t.Run("too large", func(t *testing.T) {
		big := `{"title":"` + strings.Repeat("a", maxBodyBytes) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
		var dst struct{ Title string }
		err := decodeJSON(httptest.NewRecorder(), req, &dst)
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	})
}

func TestFail_LogsOnlyInternalErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	req := httptest.NewRequest(http.MethodGet, "/api/utilities/x", nil)

	fail(httptest.NewRecorder(), req, logger, apperror.Forbidden("Utility not found or access denied"))
	assert.Empty(t, buf.String())

	fail(httptest.NewRecorder(), req, logger, errors.New("sqlite: locked"))
	assert.Contains(t, buf.String(), "sqlite: locked")
}
