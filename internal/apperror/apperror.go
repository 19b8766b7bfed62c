// Package apperror defines the domain error taxonomy shared by every layer.
//
// Services and the authorization gate return *AppError values that wrap one
// of the sentinels below. The HTTP layer maps them to status codes in one
// place (handler.writeError) using errors.Is, so no caller ever inspects
// free-text messages to decide what went wrong.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("Validation Error")
	ErrConflict             = errors.New("conflict")
	ErrForbidden            = errors.New("forbidden")
	ErrUnauthenticated      = errors.New("not authenticated")
	ErrVerificationRequired = errors.New("verification required")
)

// Kind is the machine-readable reason attached to every denial.
type Kind string

const (
	KindNotAuthenticated     Kind = "NOT_AUTHENTICATED"
	KindVerificationRequired Kind = "VERIFICATION_REQUIRED"
	KindNotFound             Kind = "NOT_FOUND"
	KindAccessDenied         Kind = "ACCESS_DENIED"
	KindValidation           Kind = "VALIDATION_ERROR"
	KindConflict             Kind = "CONFLICT"
	KindInternal             Kind = "INTERNAL_ERROR"
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// RequiresVerification reports whether the caller should be prompted to
// verify their email before retrying.
func (e *AppError) RequiresVerification() bool {
	return errors.Is(e.Err, ErrVerificationRequired)
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// NotFoundMessage is NotFound with a caller-chosen message, used where the
// public wording must not reveal which of "missing" or "not yours" applied.
func NotFoundMessage(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated is returned when no valid session backs the request.
func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "User not authenticated",
	}
}

// InvalidCredentials is a failed sign-in. It does not say whether the email
// or the password was wrong.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "Invalid email or password",
	}
}

// VerificationRequired is returned when an unverified account has used up
// its creation allowance.
func VerificationRequired(message string) *AppError {
	return &AppError{
		Err:     ErrVerificationRequired,
		Message: message,
	}
}

// KindOf classifies any error into a Kind. Errors outside the taxonomy are
// KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return KindNotAuthenticated
	case errors.Is(err, ErrVerificationRequired):
		return KindVerificationRequired
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindAccessDenied
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindInternal
	}
}
