package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("Validation Error")
	ErrConflict       = errors.New("conflict")
	ErrForbidden      = errors.New("forbidden")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrMalformedInput = errors.New("malformed input")
)

type AppError struct {
	Err     error               // actual error
	Message string              // Human-readable error message
	Field   string              // Optional: field causing the error
	Fields  map[string][]string // Optional: every failing field with its messages, in check order
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
		Fields:  map[string][]string{field: {message}},
	}
}

// Invalid wraps a field → messages result into a validation error.
// Field is set to the first failing field in name order so single-field
// callers keep working.
func Invalid(fields map[string][]string) *AppError {
	names := sortedFields(fields)
	e := &AppError{
		Err:     ErrValidation,
		Message: summarize(fields, names),
		Fields:  fields,
	}
	if len(names) > 0 {
		e.Field = names[0]
	}
	return e
}

// ConstraintViolation reports a storage-level uniqueness rejection in the
// same field → messages shape as a validation failure. It matches both
// ErrConflict and ErrValidation.
func ConstraintViolation(field, message string) *AppError {
	fields := map[string][]string{field: {message}}
	return &AppError{
		Err:     errors.Join(ErrConflict, ErrValidation),
		Message: summarize(fields, []string{field}),
		Field:   field,
		Fields:  fields,
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

// Unauthorized reports missing or wrong credentials. HTTP handlers map
// this to 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Malformed reports input that cannot be interpreted at all, such as an
// email address with no "@".
func Malformed(field, message string) *AppError {
	return &AppError{
		Err:     ErrMalformedInput,
		Message: message,
		Field:   field,
	}
}

func sortedFields(fields map[string][]string) []string {
	names := make([]string, 0, len(fields))
	for name, msgs := range fields {
		if len(msgs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// summarize renders "email can't be blank; username is invalid".
func summarize(fields map[string][]string, names []string) string {
	if len(names) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(names))
	for _, name := range names {
		for _, msg := range fields[name] {
			parts = append(parts, name+" "+msg)
		}
	}
	return strings.Join(parts, "; ")
}
