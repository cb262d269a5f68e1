// Package service contains the business logic between the HTTP handlers
// and the repositories.
//
//	Handler → Service → Repository
//
// Services take repository interfaces so tests can pass in-memory fakes.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/listmate/internal/apperror"
	"github.com/sakif/listmate/internal/auth"
	"github.com/sakif/listmate/internal/model"
	"github.com/sakif/listmate/internal/notify"
	"github.com/sakif/listmate/internal/repository"
	"github.com/sakif/listmate/internal/validation"
)

// RegisterRequest lists the fields a sign-up may set. FullName, when
// given, overrides FirstName and LastName.
type RegisterRequest struct {
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
	Username             string `json:"username"`
	FirstName            string `json:"firstName"`
	LastName             string `json:"lastName"`
	FullName             string `json:"fullName"`
}

// UpdateProfileRequest lists the fields a user may change. Nil means
// unchanged; a pointer to "" clears the field.
type UpdateProfileRequest struct {
	Username  *string `json:"username"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	FullName  *string `json:"fullName"`
}

// UserService owns account creation, profile updates and deletion.
type UserService struct {
	users     repository.UserRepository
	validator *validation.Validator
	passwords *auth.PasswordService
	notifier  notify.Notifier
	logger    *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	notifier notify.Notifier,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		validator: validation.New(users),
		passwords: passwords,
		notifier:  notifier,
		logger:    logger,
	}
}

// Register creates a password account.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	u := &model.User{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	}
	if strings.TrimSpace(req.FullName) != "" {
		u.SetFullName(req.FullName)
	}

	if err := s.create(ctx, u, req.Password, req.PasswordConfirmation); err != nil {
		return nil, err
	}
	return u, nil
}

// create is the one path every new account goes through: validate, hash,
// insert, then announce. The announcement happens only after the insert
// committed and cannot fail the call.
func (s *UserService) create(ctx context.Context, u *model.User, password, confirmation string) error {
	u.Email = normalizeEmail(u.Email)
	u.Username = strings.TrimSpace(u.Username)

	errs, err := s.validator.Validate(ctx, u)
	if err != nil {
		return fmt.Errorf("service/user: validating: %w", err)
	}
	errs.Merge(validation.CheckPassword(password, confirmation))
	if !errs.Empty() {
		return errs.Err()
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return fmt.Errorf("service/user: hashing password: %w", err)
	}
	u.PasswordHash = hash

	if err := s.users.Create(ctx, u); err != nil {
		return fmt.Errorf("service/user: creating user: %w", err)
	}

	s.logger.Info("user created",
		slog.String("userID", u.ID),
		slog.String("email", u.MaskedEmail()),
		slog.String("provider", u.Provider),
	)

	s.notifier.NotifyAccountCreated(ctx, u)
	return nil
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	return s.users.GetByID(ctx, id)
}

// UpdateProfile applies req to the user's username and name fields.
func (s *UserService) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*model.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		u.Username = strings.TrimSpace(*req.Username)
	}
	if req.FirstName != nil {
		u.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		u.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.FullName != nil {
		u.SetFullName(*req.FullName)
	}

	errs, err := s.validator.Validate(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("service/user: validating: %w", err)
	}
	if !errs.Empty() {
		return nil, errs.Err()
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("service/user: updating user %s: %w", id, err)
	}

	s.logger.Info("profile updated", slog.String("userID", id))
	return u, nil
}

// ChangePassword checks current against the stored hash before replacing it.
func (s *UserService) ChangePassword(ctx context.Context, id, current, password, confirmation string) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.passwords.Verify(u.PasswordHash, current); err != nil {
		return apperror.ValidationFailed("current_password", validation.MsgInvalid)
	}
	if errs := validation.CheckPassword(password, confirmation); !errs.Empty() {
		return errs.Err()
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return fmt.Errorf("service/user: hashing password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		return fmt.Errorf("service/user: updating password: %w", err)
	}

	s.logger.Info("password changed", slog.String("userID", id))
	return nil
}

// Delete removes the account together with the friendships and lists it
// owns.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/user: deleting user %s: %w", id, err)
	}
	s.logger.Info("user deleted", slog.String("userID", id))
	return nil
}

// DisplayUserAs resolves what other users see for id under preference.
func (s *UserService) DisplayUserAs(ctx context.Context, id, preference string) (string, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return u.DisplayAs(preference)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
