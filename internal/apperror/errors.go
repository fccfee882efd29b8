package apperror

import (
	"errors"
	"fmt"
)

var (
	// common errors
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")

	// auth-specific errors
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTokenMissing       = errors.New("token missing")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
)

// ConflictError reports a uniqueness violation on a single field.
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s is already in use", e.Field)
	}
	return fmt.Sprintf("%s %q is already in use", e.Field, e.Value)
}

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Conflict returns the ConflictError wrapped in err, if any.
func Conflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Validation returns the ValidationError wrapped in err, if any.
func Validation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
