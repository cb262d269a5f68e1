// Package notify carries the account-created event from the services to
// the mail deliveries. Publishing is fire-and-forget: publishers log
// failures and never return them to the caller.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sakif/listmate/internal/model"
)

const TopicAccountCreated = "user.account_created"

// Notifier is implemented by every publisher (Bus, KafkaPublisher).
type Notifier interface {
	NotifyAccountCreated(ctx context.Context, user *model.User)
}

// AccountCreated is the event payload, JSON encoded on the wire.
type AccountCreated struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Provider    string    `json:"provider,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewAccountCreated(u *model.User) AccountCreated {
	display, err := u.DisplayAs(model.DisplayUsername)
	if err != nil {
		display = u.ID
	}
	return AccountCreated{
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: display,
		Provider:    u.Provider,
		CreatedAt:   u.CreatedAt,
	}
}

func encodeAccountCreated(u *model.User) ([]byte, error) {
	return json.Marshal(NewAccountCreated(u))
}
