// Package sqlite implements the repository interfaces on SQLite.
//
// DB owns the connection pool and the schema. The per-table stores
// (Users, Friendships, Lists) share that pool.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/sakif/listmate/internal/repository"
)

type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/listmate.db" → file-based database
//   - ":memory:"         → in-memory database, gone on Close
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// PRAGMAs are per connection and ":memory:" is per connection too,
	// so the pool is pinned to a single connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Required for the ON DELETE CASCADE on friendships and lists.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Users() *UserDB             { return &UserDB{conn: db.conn} }
func (db *DB) Friendships() *FriendshipDB { return &FriendshipDB{conn: db.conn} }
func (db *DB) Lists() *ListDB             { return &ListDB{conn: db.conn} }

// migrate creates the schema. Every statement is idempotent.
func (db *DB) migrate() error {
	// Empty username, provider and uid are stored as NULL so that the
	// UNIQUE constraints only apply to present values.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			provider      TEXT,
			uid           TEXT,
			username      TEXT UNIQUE,
			first_name    TEXT NOT NULL DEFAULT '',
			last_name     TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (provider, uid)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// friend_id has no foreign key: when the friend is deleted the edge
	// stays and reads filter it out.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS friendships (
			id         TEXT PRIMARY KEY,
			owner_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			friend_id  TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (owner_id, friend_id)
		);
		CREATE INDEX IF NOT EXISTS idx_friendships_friend_id ON friendships(friend_id);
	`)
	if err != nil {
		return fmt.Errorf("creating friendships table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS lists (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name       TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_lists_user_id ON lists(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating lists table: %w", err)
	}

	return nil
}

// nullable maps "" to NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// clampPage applies the default and maximum page size.
func clampPage(opts repository.ListOptions) (limit, offset int) {
	limit = opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset = opts.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
