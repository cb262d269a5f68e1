package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/listmate/internal/apperror"
	"github.com/sakif/listmate/internal/model"
	"github.com/sakif/listmate/internal/repository"
)

const MaxListNameLength = 100

// ListService manages lists. Every operation is scoped to the calling
// user; touching someone else's list is forbidden.
type ListService struct {
	repo   repository.ListRepository
	logger *slog.Logger
}

func NewListService(repo repository.ListRepository, logger *slog.Logger) *ListService {
	return &ListService{repo: repo, logger: logger}
}

func (s *ListService) Create(ctx context.Context, userID, name string) (*model.List, error) {
	name, err := checkListName(name)
	if err != nil {
		return nil, err
	}

	list := &model.List{UserID: userID, Name: name}
	if err := s.repo.Create(ctx, list); err != nil {
		s.logger.Error("failed to create list",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/list: creating list: %w", err)
	}

	s.logger.Info("list created",
		slog.String("id", list.ID),
		slog.String("userID", userID),
	)
	return list, nil
}

// Get returns the list if userID owns it.
func (s *ListService) Get(ctx context.Context, userID, id string) (*model.List, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "list ID is required")
	}

	list, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if list.UserID != userID {
		return nil, apperror.Forbidden("you do not own this list")
	}
	return list, nil
}

func (s *ListService) ListByOwner(ctx context.Context, userID string, limit, offset int) ([]model.List, error) {
	lists, err := s.repo.ListByOwner(ctx, userID, page(limit, offset))
	if err != nil {
		s.logger.Error("failed to list lists", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/list: listing lists: %w", err)
	}
	return lists, nil
}

func (s *ListService) Rename(ctx context.Context, userID, id, name string) (*model.List, error) {
	name, err := checkListName(name)
	if err != nil {
		return nil, err
	}

	list, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	list.Name = name
	if err := s.repo.Update(ctx, list); err != nil {
		return nil, fmt.Errorf("service/list: renaming list %s: %w", id, err)
	}
	return list, nil
}

func (s *ListService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/list: deleting list %s: %w", id, err)
	}

	s.logger.Info("list deleted", slog.String("id", id), slog.String("userID", userID))
	return nil
}

func checkListName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperror.ValidationFailed("name", "list name is required")
	}
	if utf8.RuneCountInString(name) > MaxListNameLength {
		return "", apperror.ValidationFailed("name",
			fmt.Sprintf("list name must be %d characters or less", MaxListNameLength))
	}
	return name, nil
}
