// Package apperror defines the error taxonomy shared by every layer.
//
// Each failure class has a sentinel (ErrXxx). Constructors return an *AppError
// that wraps the sentinel, so callers match with errors.Is and read the
// human-readable message with errors.As.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrDuplicateUser      = errors.New("duplicate user")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrProvider           = errors.New("identity provider error")
	ErrStoreUnavailable   = errors.New("store unavailable")
)

type AppError struct {
	Err     error  // sentinel this error belongs to
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying error (driver, network, ...)
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is/As.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// DuplicateUser is returned when registering a username that is already taken.
func DuplicateUser(username string) *AppError {
	return &AppError{
		Err:     ErrDuplicateUser,
		Message: fmt.Sprintf("user %q already exists", username),
		Field:   "username",
	}
}

// InvalidCredentials deliberately carries no detail about which half of the
// username/password pair was wrong.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "invalid username or password",
	}
}

func Provider(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrProvider,
		Message: message,
		Cause:   cause,
	}
}

// StoreUnavailable wraps a storage driver failure.
func StoreUnavailable(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrStoreUnavailable,
		Message: "store unavailable during " + op,
		Cause:   cause,
	}
}
