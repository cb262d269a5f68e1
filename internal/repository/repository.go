// Package repository declares the storage contracts the services depend on.
// The sqlite subpackage implements them.
package repository

import (
	"context"

	"github.com/sakif/listmate/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository is the identity store. Find* and GetByID return an
// apperror.ErrNotFound error on a miss. Create and Update return an
// apperror.ConstraintViolation when a unique column is already taken.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	FindByProviderUID(ctx context.Context, provider, uid string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// Delete removes the user with the friendships and lists they own.
	Delete(ctx context.Context, id string) error
}

// FriendshipRepository stores directed owner → friend edges.
// Reads skip edges whose friend no longer exists.
type FriendshipRepository interface {
	Create(ctx context.Context, f *model.Friendship) error
	Delete(ctx context.Context, ownerID, friendID string) error
	Exists(ctx context.Context, ownerID, friendID string) (bool, error)
	ListFriends(ctx context.Context, ownerID string, opts ListOptions) ([]model.User, error)
	ListInverseFriends(ctx context.Context, friendID string, opts ListOptions) ([]model.User, error)
}

type ListRepository interface {
	Create(ctx context.Context, list *model.List) error
	GetByID(ctx context.Context, id string) (*model.List, error)
	ListByOwner(ctx context.Context, userID string, opts ListOptions) ([]model.List, error)
	Update(ctx context.Context, list *model.List) error
	Delete(ctx context.Context, id string) error
}
