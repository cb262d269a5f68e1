// Package model defines the data structures used throughout the application.
package model

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/sakif/listmate/internal/apperror"
)

// DisplayUsername is the only display preference that shows the username.
// Every other preference value falls back to the masked email.
const DisplayUsername = "username"

// User represents an account that signs in with a password, an OAuth
// provider, or both.
//
// Provider and UID are either both set (OAuth-created accounts) or both
// empty. Username, FirstName and LastName are optional; empty means absent
// and is stored as NULL so the unique indexes ignore it.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"-"`
	PasswordHash string    `json:"-"`
	Provider     string    `json:"provider,omitempty"`
	UID          string    `json:"uid,omitempty"`
	Username     string    `json:"username,omitempty"`
	FirstName    string    `json:"firstName,omitempty"`
	LastName     string    `json:"lastName,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SetFullName splits name into words. The first word becomes FirstName
// and the second LastName; further words are dropped. A single word
// leaves LastName empty.
func (u *User) SetFullName(name string) {
	words := strings.Fields(norm.NFC.String(name))
	u.FirstName, u.LastName = "", ""
	if len(words) > 0 {
		u.FirstName = words[0]
	}
	if len(words) > 1 {
		u.LastName = words[1]
	}
}

// FullName is recomputed from FirstName and LastName on every call.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// DisplayAs returns the string other users see for u.
//
//	"username" with a non-blank username → the username
//	anything else                         → the masked email
func (u *User) DisplayAs(preference string) (string, error) {
	if preference == DisplayUsername && strings.TrimSpace(u.Username) != "" {
		return u.Username, nil
	}
	return MaskEmail(u.Email)
}

// MaskedEmail is DisplayAs's fallback, for log lines and events.
// It returns "" when the stored email is malformed.
func (u *User) MaskedEmail() string {
	masked, err := MaskEmail(u.Email)
	if err != nil {
		return ""
	}
	return masked
}

// MaskEmail returns the local part of email, the text before the first "@".
func MaskEmail(email string) (string, error) {
	local, _, found := strings.Cut(email, "@")
	if !found {
		return "", apperror.Malformed("email", "email has no @")
	}
	return local, nil
}
