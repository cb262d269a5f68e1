package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/listmate/internal/apperror"
	"github.com/sakif/listmate/internal/model"
	"github.com/sakif/listmate/internal/repository"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// FriendService manages directed friendship edges. Adding B as a friend
// of A says nothing about whether A is a friend of B.
type FriendService struct {
	users       repository.UserRepository
	friendships repository.FriendshipRepository
	logger      *slog.Logger
}

func NewFriendService(users repository.UserRepository, friendships repository.FriendshipRepository, logger *slog.Logger) *FriendService {
	return &FriendService{users: users, friendships: friendships, logger: logger}
}

// AddFriend creates ownerID → friendID only.
func (s *FriendService) AddFriend(ctx context.Context, ownerID, friendID string) (*model.Friendship, error) {
	if friendID == "" {
		return nil, apperror.ValidationFailed("friend_id", "can't be blank")
	}
	if ownerID == friendID {
		return nil, apperror.ValidationFailed("friend_id", "can't be yourself")
	}
	if _, err := s.users.GetByID(ctx, ownerID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, friendID); err != nil {
		return nil, err
	}

	f := &model.Friendship{OwnerID: ownerID, FriendID: friendID}
	if err := s.friendships.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("service/friend: adding friend: %w", err)
	}

	s.logger.Info("friend added",
		slog.String("ownerID", ownerID),
		slog.String("friendID", friendID),
	)
	return f, nil
}

// IsFriend looks at userID's own edges only. A candidate whose account
// was deleted is not a friend.
func (s *FriendService) IsFriend(ctx context.Context, userID, candidateID string) (bool, error) {
	ok, err := s.friendships.Exists(ctx, userID, candidateID)
	if err != nil {
		return false, fmt.Errorf("service/friend: checking friendship: %w", err)
	}
	return ok, nil
}

func (s *FriendService) Unfriend(ctx context.Context, ownerID, friendID string) error {
	if err := s.friendships.Delete(ctx, ownerID, friendID); err != nil {
		return fmt.Errorf("service/friend: removing friend: %w", err)
	}
	s.logger.Info("friend removed",
		slog.String("ownerID", ownerID),
		slog.String("friendID", friendID),
	)
	return nil
}

// ListFriends returns the users userID has added.
func (s *FriendService) ListFriends(ctx context.Context, userID string, limit, offset int) ([]model.User, error) {
	friends, err := s.friendships.ListFriends(ctx, userID, page(limit, offset))
	if err != nil {
		return nil, fmt.Errorf("service/friend: listing friends: %w", err)
	}
	return friends, nil
}

// ListInverseFriends returns the users who have added userID.
func (s *FriendService) ListInverseFriends(ctx context.Context, userID string, limit, offset int) ([]model.User, error) {
	users, err := s.friendships.ListInverseFriends(ctx, userID, page(limit, offset))
	if err != nil {
		return nil, fmt.Errorf("service/friend: listing inverse friends: %w", err)
	}
	return users, nil
}

func page(limit, offset int) repository.ListOptions {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.ListOptions{Limit: limit, Offset: offset}
}
