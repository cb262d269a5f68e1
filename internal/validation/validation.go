// Package validation checks candidate User records before they are written.
//
// Check is pure and covers format and length rules. Validator adds the
// uniqueness rules, which need a store lookup. Neither returns a failed
// validation as an error: the caller gets the field → messages result and
// decides whether to persist.
package validation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/sakif/listmate/internal/apperror"
	"github.com/sakif/listmate/internal/model"
)

const (
	UsernameMinLength = 3
	UsernameMaxLength = 30
	NameMinLength     = 1
	NameMaxLength     = 16
	PasswordMinLength = 8
	PasswordMaxLength = 72 // bcrypt input limit
)

// Rails-style messages, rendered after the field name ("email can't be blank").
const (
	MsgBlank     = "can't be blank"
	MsgInvalid   = "is invalid"
	MsgTaken     = "has already been taken"
	MsgMismatch  = "doesn't match password"
	MsgWeak      = "must include a lowercase letter, an uppercase letter and a digit"
	msgTooShortF = "is too short (minimum is %d characters)"
	msgTooLongF  = "is too long (maximum is %d characters)"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9]{2,16}[-_]?[A-Za-z0-9]{2,16}$`)
	namePattern     = regexp.MustCompile(`^[\p{L}\p{M}]+$`)

	validate = validator.New()
)

// Errors maps a field name to its messages in the order they were found.
type Errors map[string][]string

func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e Errors) Empty() bool {
	return len(e) == 0
}

// Merge copies every message of other into e.
func (e Errors) Merge(other Errors) {
	for field, msgs := range other {
		for _, msg := range msgs {
			e.Add(field, msg)
		}
	}
}

// Err returns nil when e is empty and an apperror.ErrValidation otherwise.
func (e Errors) Err() error {
	if e.Empty() {
		return nil
	}
	return apperror.Invalid(map[string][]string(e))
}

func TooShort(min int) string { return fmt.Sprintf(msgTooShortF, min) }
func TooLong(max int) string  { return fmt.Sprintf(msgTooLongF, max) }

// Check runs the format and length rules against u.
// Blank username and name fields are skipped.
func Check(u *model.User) Errors {
	errs := Errors{}

	email := strings.TrimSpace(u.Email)
	switch {
	case email == "":
		errs.Add("email", MsgBlank)
	case validate.Var(email, "email") != nil:
		errs.Add("email", MsgInvalid)
	}

	if u.Username != "" {
		checkLength(errs, "username", u.Username, UsernameMinLength, UsernameMaxLength)
		if !usernamePattern.MatchString(u.Username) {
			errs.Add("username", MsgInvalid)
		}
	}

	checkName(errs, "first_name", u.FirstName)
	checkName(errs, "last_name", u.LastName)

	return errs
}

// CheckPassword enforces the password policy on a plaintext password and
// its confirmation.
func CheckPassword(password, confirmation string) Errors {
	errs := Errors{}

	if password == "" {
		errs.Add("password", MsgBlank)
		return errs
	}
	if len(password) < PasswordMinLength {
		errs.Add("password", TooShort(PasswordMinLength))
	}
	if len(password) > PasswordMaxLength {
		errs.Add("password", TooLong(PasswordMaxLength))
	}
	if !StrongPassword(password) {
		errs.Add("password", MsgWeak)
	}
	if password != confirmation {
		errs.Add("password_confirmation", MsgMismatch)
	}

	return errs
}

// StrongPassword reports whether s has at least one lowercase letter, one
// uppercase letter and one digit.
func StrongPassword(s string) bool {
	var lower, upper, digit bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

func checkName(errs Errors, field, value string) {
	if value == "" {
		return
	}
	value = norm.NFC.String(value)
	checkLength(errs, field, value, NameMinLength, NameMaxLength)
	if !namePattern.MatchString(value) {
		errs.Add(field, MsgInvalid)
	}
}

func checkLength(errs Errors, field, value string, min, max int) {
	n := utf8.RuneCountInString(value)
	if n < min {
		errs.Add(field, TooShort(min))
	}
	if n > max {
		errs.Add(field, TooLong(max))
	}
}

// Lookup is the read side of the identity store that uniqueness needs.
// Both methods return an apperror.ErrNotFound error on a miss.
type Lookup interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// Validator runs Check plus the uniqueness rules for email and username.
type Validator struct {
	lookup Lookup
}

func New(lookup Lookup) *Validator {
	return &Validator{lookup: lookup}
}

// Validate returns the failed rules for u. The error is non-nil only when
// the store lookup itself fails. A record matching u.ID is u itself and
// does not count as taken.
func (v *Validator) Validate(ctx context.Context, u *model.User) (Errors, error) {
	errs := Check(u)

	if email := strings.TrimSpace(u.Email); email != "" {
		taken, err := v.taken(ctx, u.ID, func() (*model.User, error) {
			return v.lookup.FindByEmail(ctx, email)
		})
		if err != nil {
			return nil, fmt.Errorf("validation: checking email: %w", err)
		}
		if taken {
			errs.Add("email", MsgTaken)
		}
	}

	if u.Username != "" {
		taken, err := v.taken(ctx, u.ID, func() (*model.User, error) {
			return v.lookup.FindByUsername(ctx, u.Username)
		})
		if err != nil {
			return nil, fmt.Errorf("validation: checking username: %w", err)
		}
		if taken {
			errs.Add("username", MsgTaken)
		}
	}

	return errs, nil
}

func (v *Validator) taken(ctx context.Context, selfID string, find func() (*model.User, error)) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	other, err := find()
	if errors.Is(err, apperror.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return other.ID != selfID, nil
}
