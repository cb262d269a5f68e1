package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/listmate/internal/model"
	"github.com/sakif/listmate/internal/repository"
)

var _ repository.FriendshipRepository = (*FriendshipDB)(nil)

// FriendshipDB stores directed edges. Every read joins users on the far
// end of the edge so a deleted friend simply drops out of the results.
type FriendshipDB struct {
	conn *sql.DB
}

// Create inserts owner → friend. A repeated edge fails with a
// ConstraintViolation on friend_id.
func (s *FriendshipDB) Create(ctx context.Context, f *model.Friendship) error {
	f.ID = xid.New().String()
	f.CreatedAt = time.Now()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO friendships (id, owner_id, friend_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		f.ID,
		f.OwnerID,
		f.FriendID,
		f.CreatedAt,
	)
	if err != nil {
		f.ID = ""
		return fmt.Errorf("sqlite: creating friendship %s -> %s: %w", f.OwnerID, f.FriendID, translate(err))
	}

	return nil
}

func (s *FriendshipDB) Delete(ctx context.Context, ownerID, friendID string) error {
	result, err := s.conn.ExecContext(ctx,
		`DELETE FROM friendships WHERE owner_id = ? AND friend_id = ?`,
		ownerID, friendID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting friendship %s -> %s: %w", ownerID, friendID, err)
	}

	return requireAffected(result, "friendship", ownerID+"->"+friendID)
}

// Exists reports whether ownerID has an edge to a friendID that still exists.
func (s *FriendshipDB) Exists(ctx context.Context, ownerID, friendID string) (bool, error) {
	var n int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM friendships f
		 JOIN users u ON u.id = f.friend_id
		 WHERE f.owner_id = ? AND f.friend_id = ?`,
		ownerID, friendID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking friendship %s -> %s: %w", ownerID, friendID, err)
	}
	return n > 0, nil
}

// ListFriends returns the users ownerID has added, newest edge first.
func (s *FriendshipDB) ListFriends(ctx context.Context, ownerID string, opts repository.ListOptions) ([]model.User, error) {
	return s.listUsers(ctx, "friends of "+ownerID,
		`SELECT u.id, u.email, u.password_hash, u.provider, u.uid, u.username,
		        u.first_name, u.last_name, u.created_at, u.updated_at
		 FROM friendships f
		 JOIN users u ON u.id = f.friend_id
		 WHERE f.owner_id = ?
		 ORDER BY f.created_at DESC, f.id DESC
		 LIMIT ? OFFSET ?`,
		ownerID, opts)
}

// ListInverseFriends returns the users who have added friendID.
func (s *FriendshipDB) ListInverseFriends(ctx context.Context, friendID string, opts repository.ListOptions) ([]model.User, error) {
	return s.listUsers(ctx, "inverse friends of "+friendID,
		`SELECT u.id, u.email, u.password_hash, u.provider, u.uid, u.username,
		        u.first_name, u.last_name, u.created_at, u.updated_at
		 FROM friendships f
		 JOIN users u ON u.id = f.owner_id
		 WHERE f.friend_id = ?
		 ORDER BY f.created_at DESC, f.id DESC
		 LIMIT ? OFFSET ?`,
		friendID, opts)
}

func (s *FriendshipDB) listUsers(ctx context.Context, what, query, id string, opts repository.ListOptions) ([]model.User, error) {
	limit, offset := clampPage(opts)

	rows, err := s.conn.QueryContext(ctx, query, id, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing %s: %w", what, err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s: %w", what, err)
	}

	return users, nil
}
