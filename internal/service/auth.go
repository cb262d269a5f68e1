package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/listmate/internal/apperror"
	"github.com/sakif/listmate/internal/auth"
	"github.com/sakif/listmate/internal/model"
	"github.com/sakif/listmate/internal/repository"
	"github.com/sakif/listmate/internal/validation"
)

// AuthService signs users in: password login, OAuth login and session
// token validation. New accounts are created through UserService.
//
//	AuthHandler → AuthService → UserService → UserRepository
//	                          ↘ TokenService (JWT)
type AuthService struct {
	users     repository.UserRepository
	accounts  *UserService
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	accounts *UserService,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		accounts:  accounts,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user with a freshly issued session token.
type AuthResult struct {
	User  *model.User
	Token string
}

// LinkResult tells an existing account apart from one created just now.
type LinkResult struct {
	User    *model.User
	Created bool
}

// LinkOAuth resolves a verified provider identity to a local account.
//
// An account already linked to (provider, uid) is returned as is; its
// profile is not refreshed from the assertion. Otherwise a new account is
// created with a generated password. If creation fails validation the
// error is returned and no user is. When a concurrent callback wins the
// insert, the winner is returned as existing.
func (s *AuthService) LinkOAuth(ctx context.Context, a model.OAuthAssertion) (*LinkResult, error) {
	a.Provider = strings.TrimSpace(a.Provider)
	a.UID = strings.TrimSpace(a.UID)
	if a.Provider == "" {
		return nil, apperror.ValidationFailed("provider", validation.MsgBlank)
	}
	if a.UID == "" {
		return nil, apperror.ValidationFailed("uid", validation.MsgBlank)
	}

	existing, err := s.findLinked(ctx, a)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &LinkResult{User: existing}, nil
	}

	password, err := auth.GeneratePassword(validation.StrongPassword)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating password: %w", err)
	}

	u := &model.User{
		Email:    a.Info.Email,
		Provider: a.Provider,
		UID:      a.UID,
	}
	u.SetFullName(a.Info.Name)

	err = s.accounts.create(ctx, u, password, password)
	if err != nil {
		// A concurrent callback for the same identity may have committed
		// between the lookup and the insert. Its insert makes ours fail
		// on (provider, uid), or on email if validation ran after it.
		if winner, findErr := s.findLinked(ctx, a); findErr == nil && winner != nil {
			return &LinkResult{User: winner}, nil
		}
		s.logger.Warn("oauth sign-up rejected",
			slog.String("provider", a.Provider),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	return &LinkResult{User: u, Created: true}, nil
}

// findLinked returns nil, nil when no account is linked yet.
func (s *AuthService) findLinked(ctx context.Context, a model.OAuthAssertion) (*model.User, error) {
	u, err := s.users.FindByProviderUID(ctx, a.Provider, a.UID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up %s identity: %w", a.Provider, err)
	}
	return u, nil
}

// LoginOAuth links the assertion and issues a session token.
func (s *AuthService) LoginOAuth(ctx context.Context, a model.OAuthAssertion) (*AuthResult, bool, error) {
	linked, err := s.LinkOAuth(ctx, a)
	if err != nil {
		return nil, false, err
	}

	s.logger.Info("user authenticated via oauth",
		slog.String("userID", linked.User.ID),
		slog.String("provider", a.Provider),
		slog.Bool("created", linked.Created),
	)

	result, err := s.issue(linked.User)
	if err != nil {
		return nil, false, err
	}
	return result, linked.Created, nil
}

// Register creates a password account and signs it in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	u, err := s.accounts.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.issue(u)
}

// LoginPassword checks email and password. Unknown email and wrong
// password produce the same error.
func (s *AuthService) LoginPassword(ctx context.Context, email, password string) (*AuthResult, error) {
	invalid := apperror.Unauthorized("invalid email or password")

	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(u.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Info("password login failed", slog.String("userID", u.ID))
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	s.logger.Info("user authenticated via password", slog.String("userID", u.ID))
	return s.issue(u)
}

func (s *AuthService) issue(u *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(u.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", u.ID, err)
	}
	return &AuthResult{User: u, Token: token}, nil
}

// GetUserByID loads the account a validated session belongs to.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, errors.New("service/auth: user ID must not be empty")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	return user, nil
}

// ValidateToken returns the user ID a session token was issued for.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}
