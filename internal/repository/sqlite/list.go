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

var _ repository.ListRepository = (*ListDB)(nil)

type ListDB struct {
	conn *sql.DB
}

func (s *ListDB) Create(ctx context.Context, list *model.List) error {
	list.ID = xid.New().String()

	now := time.Now()
	list.CreatedAt = now
	list.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO lists (id, user_id, name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		list.ID,
		list.UserID,
		list.Name,
		list.CreatedAt,
		list.UpdatedAt,
	)
	if err != nil {
		list.ID = ""
		return fmt.Errorf("sqlite: creating list: %w", err)
	}

	return nil
}

func (s *ListDB) GetByID(ctx context.Context, id string) (*model.List, error) {
	var l model.List

	err := s.conn.QueryRowContext(ctx,
		`SELECT id, user_id, name, created_at, updated_at
		 FROM lists
		 WHERE id = ?`,
		id,
	).Scan(
		&l.ID,
		&l.UserID,
		&l.Name,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("list", id)
		}
		return nil, fmt.Errorf("sqlite: getting list %s: %w", id, err)
	}

	return &l, nil
}

func (s *ListDB) ListByOwner(ctx context.Context, userID string, opts repository.ListOptions) ([]model.List, error) {
	limit, offset := clampPage(opts)

	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, user_id, name, created_at, updated_at
		 FROM lists
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		userID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing lists for %s: %w", userID, err)
	}
	defer rows.Close()

	lists := make([]model.List, 0, limit)
	for rows.Next() {
		var l model.List
		if err := rows.Scan(&l.ID, &l.UserID, &l.Name, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning list row: %w", err)
		}
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating lists: %w", err)
	}

	return lists, nil
}

func (s *ListDB) Update(ctx context.Context, list *model.List) error {
	list.UpdatedAt = time.Now()

	result, err := s.conn.ExecContext(ctx,
		`UPDATE lists SET name = ?, updated_at = ? WHERE id = ?`,
		list.Name,
		list.UpdatedAt,
		list.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating list %s: %w", list.ID, err)
	}

	return requireAffected(result, "list", list.ID)
}

func (s *ListDB) Delete(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting list %s: %w", id, err)
	}

	return requireAffected(result, "list", id)
}
