package handler

// RESPONSE HELPERS:
// Every API response has one of two shapes so the frontend can branch on
// "success" before looking at anything else:
//
//	{"success": true,  "data": ...}
//	{"success": false, "error": "<message>", "code": "<KIND>"}
//
// Quota denials add "requiresVerification": true so the client can show the
// verify-your-email prompt instead of a generic error.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/utility-lineups/internal/apperror"
)

// maxBodyBytes caps JSON request bodies. Share codes are the largest input.
const maxBodyBytes = 1 << 20

type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Success              bool          `json:"success"`
	Error                string        `json:"error"`
	Code                 apperror.Kind `json:"code"`
	Field                string        `json:"field,omitempty"`
	RequiresVerification bool          `json:"requiresVerification,omitempty"`
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status must be set before the body: once Encode writes, the
// header is gone.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, SuccessResponse{Success: true, Data: data})
}

// statusOf maps an error kind to an HTTP status.
func statusOf(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindNotAuthenticated:
		return http.StatusUnauthorized
	case apperror.KindVerificationRequired, apperror.KindAccessDenied:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError maps a domain error to its status and body.
//
// errors.As walks the wrap chain, so a service error like
// fmt.Errorf("service/utility: ...: %w", apperror.NotFound(...)) still maps
// to 404 with the AppError's message. Anything outside the taxonomy is a 500
// with a fixed message; internal details never reach the client.
func writeError(w http.ResponseWriter, err error) {
	kind := apperror.KindOf(err)

	var appErr *apperror.AppError
	if kind == apperror.KindInternal || !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "Unknown error",
			Code:  apperror.KindInternal,
		})
		return
	}

	writeJSON(w, statusOf(kind), ErrorResponse{
		Error:                appErr.Message,
		Code:                 kind,
		Field:                appErr.Field,
		RequiresVerification: appErr.RequiresVerification(),
	})
}

// decodeJSON reads a JSON body into dst. Malformed input is a validation
// error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}

// fail logs unexpected errors before writing them. Expected denials are
// logged by the gate, not here.
func fail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if apperror.KindOf(err) == apperror.KindInternal {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeError(w, err)
}
