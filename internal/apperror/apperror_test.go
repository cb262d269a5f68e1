package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("user", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("email", "can't be blank"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Invalid wraps ErrValidation",
			err:       Invalid(map[string][]string{"username": {"is invalid"}}),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "ConstraintViolation matches ErrConflict",
			err:       ConstraintViolation("email", "has already been taken"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "ConstraintViolation matches ErrValidation",
			err:       ConstraintViolation("email", "has already been taken"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Malformed wraps ErrMalformedInput",
			err:       Malformed("email", "email has no @"),
			target:    ErrMalformedInput,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("invalid email or password"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "wrapped with fmt.Errorf still matches",
			err:       fmt.Errorf("service/user: creating: %w", ConstraintViolation("username", "has already been taken")),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("user", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "Malformed does NOT match ErrValidation",
			err:       Malformed("email", "email has no @"),
			target:    ErrValidation,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("user", "abc123"),
			wantMessage: "user not found with id abc123",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("friend_id", "can't be yourself"),
			wantMessage: "can't be yourself",
		},
		{
			name: "Invalid joins fields in name order",
			err: Invalid(map[string][]string{
				"username": {"is invalid", "is too short (minimum is 3 characters)"},
				"email":    {"can't be blank"},
			}),
			wantMessage: "email can't be blank; username is invalid; username is too short (minimum is 3 characters)",
		},
		{
			name:        "ConstraintViolation prefixes the field",
			err:         ConstraintViolation("email", "has already been taken"),
			wantMessage: "email has already been taken",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("user", "abc123")
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestInvalidFields(t *testing.T) {
	fields := map[string][]string{
		"username": {"is invalid"},
		"email":    {"can't be blank"},
	}
	err := Invalid(fields)

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
	if got := err.Fields["username"]; len(got) != 1 || got[0] != "is invalid" {
		t.Errorf("Fields[username] = %v, want [is invalid]", got)
	}
}

func TestConstraintViolationFields(t *testing.T) {
	err := ConstraintViolation("uid", "has already been taken")

	if err.Field != "uid" {
		t.Errorf("Field = %q, want %q", err.Field, "uid")
	}
	if got := err.Fields["uid"]; len(got) != 1 || got[0] != "has already been taken" {
		t.Errorf("Fields[uid] = %v, want [has already been taken]", got)
	}
}
