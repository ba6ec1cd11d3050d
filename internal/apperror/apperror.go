// Package apperror defines the domain errors shared by the service and
// repository layers. Handlers translate them into HTTP outcomes.
//
// A note owned by someone else is reported as ErrNotFound, the same as a
// note that does not exist.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
)

// SlugTakenWarning is appended to a conflicting slug to build the field error
// shown next to the slug input.
const SlugTakenWarning = " — already taken, choose a different value"

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

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// DuplicateSlug reports that slug is already used by another note.
// It is a field-level error on "slug" so forms can render it in place.
func DuplicateSlug(slug string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: slug + SlugTakenWarning,
		Field:   "slug",
	}
}

// FieldOf returns the form field an error is attached to, or "" when err is
// not a field-level AppError.
func FieldOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
