package handler

import (
	"time"

	"github.com/sakif/listmate/internal/model"
)

// profileView is what a user sees about themself.
type profileView struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	MaskedEmail string    `json:"maskedEmail"`
	Username    string    `json:"username,omitempty"`
	FirstName   string    `json:"firstName,omitempty"`
	LastName    string    `json:"lastName,omitempty"`
	FullName    string    `json:"fullName,omitempty"`
	Provider    string    `json:"provider,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newProfileView(u *model.User) profileView {
	return profileView{
		ID:          u.ID,
		Email:       u.Email,
		MaskedEmail: u.MaskedEmail(),
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		FullName:    u.FullName(),
		Provider:    u.Provider,
		CreatedAt:   u.CreatedAt,
	}
}

// publicView is what other users see. It never carries the email.
type publicView struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Username    string `json:"username,omitempty"`
	FullName    string `json:"fullName,omitempty"`
}

func newPublicView(u *model.User) publicView {
	name, err := u.DisplayAs(model.DisplayUsername)
	if err != nil {
		name = u.ID
	}
	return publicView{
		ID:          u.ID,
		DisplayName: name,
		Username:    u.Username,
		FullName:    u.FullName(),
	}
}

func newPublicViews(users []model.User) []publicView {
	out := make([]publicView, 0, len(users))
	for i := range users {
		out = append(out, newPublicView(&users[i]))
	}
	return out
}
