package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/listmate/internal/apperror"
	"github.com/sakif/listmate/internal/model"
	"github.com/sakif/listmate/internal/repository"
)

var _ repository.UserRepository = (*UserDB)(nil)

// UserDB is the identity store.
type UserDB struct {
	conn *sql.DB
}

const userColumns = `id, email, password_hash, provider, uid, username,
	first_name, last_name, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u                       model.User
		provider, uid, username sql.NullString
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&provider,
		&uid,
		&username,
		&u.FirstName,
		&u.LastName,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Provider = provider.String
	u.UID = uid.String
	u.Username = username.String
	return &u, nil
}

// Create inserts user and fills in ID and timestamps.
func (s *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.PasswordHash,
		nullable(user.Provider),
		nullable(user.UID),
		nullable(user.Username),
		user.FirstName,
		user.LastName,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		user.ID = ""
		return fmt.Errorf("sqlite: creating user: %w", translate(err))
	}

	return nil
}

func (s *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.findOne(ctx, "id", id, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *UserDB) FindByProviderUID(ctx context.Context, provider, uid string) (*model.User, error) {
	return s.findOne(ctx, "provider uid", provider+"/"+uid,
		`SELECT `+userColumns+` FROM users WHERE provider = ? AND uid = ?`, provider, uid)
}

// FindByUsername matches with SQLite's default BINARY collation, so the
// lookup is case-sensitive.
func (s *UserDB) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findOne(ctx, "username", username,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (s *UserDB) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findOne(ctx, "email", email,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (s *UserDB) findOne(ctx context.Context, by, key, query string, args ...any) (*model.User, error) {
	u, err := scanUser(s.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", by, err)
	}
	return u, nil
}

// Update writes the profile columns. Email, provider and uid are fixed
// after creation.
func (s *UserDB) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	result, err := s.conn.ExecContext(ctx,
		`UPDATE users
		 SET username = ?, first_name = ?, last_name = ?, updated_at = ?
		 WHERE id = ?`,
		nullable(user.Username),
		user.FirstName,
		user.LastName,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, translate(err))
	}

	return requireAffected(result, "user", user.ID)
}

func (s *UserDB) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	result, err := s.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for user %s: %w", id, err)
	}

	return requireAffected(result, "user", id)
}

// Delete removes the user. Owned friendships and lists go with it through
// ON DELETE CASCADE; edges other users own that point here are left.
func (s *UserDB) Delete(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}

	return requireAffected(result, "user", id)
}

func requireAffected(result sql.Result, resource, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
