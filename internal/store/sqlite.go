package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"
)

var tables = []string{
	`users (id INTEGER PRIMARY KEY,
	 username VARCHAR(64) NOT NULL UNIQUE,
	 password_hash VARCHAR(256) NOT NULL,
	 created_on INTEGER NOT NULL);`,

	`settings_kv (name TEXT PRIMARY KEY,
	 value TEXT NOT NULL,
	 version INTEGER NOT NULL,
	 updated_on INTEGER NOT NULL);`,
}

// SQLite implements both KV and Users on one database file.
type SQLite struct {
	path string
	db   *sql.DB
	now  func() time.Time
}

var (
	_ KV    = (*SQLite)(nil)
	_ Users = (*SQLite)(nil)
)

// Open connects to the database at path and creates missing tables.
func Open(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	for _, table := range tables {
		if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS "+table); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: create table: %w", err)
		}
	}
	return &SQLite{path: path, db: db, now: time.Now}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Get(ctx context.Context, key string) (Entry, error) {
	row := sq.Select("name, value, version, updated_on").
		From("settings_kv").
		Where(sq.Eq{"name": key}).
		RunWith(s.db).
		QueryRowContext(ctx)

	var e Entry
	var updated int64
	if err := row.Scan(&e.Key, &e.Value, &e.Version, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, fmt.Errorf("%w: key %q", ErrNotFound, key)
		}
		return Entry{}, fmt.Errorf("store: get %q: %w", key, err)
	}
	e.UpdatedAt = time.UnixMilli(updated)
	return e, nil
}

// Put overwrites the value unconditionally and bumps the version in the same
// statement, so concurrent writers are ordered by the database.
func (s *SQLite) Put(ctx context.Context, key, value string) (Entry, error) {
	now := s.now()
	row := sq.Insert("settings_kv").
		Columns("name", "value", "version", "updated_on").
		Values(key, value, 1, now.UnixMilli()).
		Suffix(`ON CONFLICT(name) DO UPDATE SET
			value = excluded.value,
			version = settings_kv.version + 1,
			updated_on = excluded.updated_on
			RETURNING version`).
		RunWith(s.db).
		QueryRowContext(ctx)

	e := Entry{Key: key, Value: value, UpdatedAt: time.UnixMilli(now.UnixMilli())}
	if err := row.Scan(&e.Version); err != nil {
		return Entry{}, fmt.Errorf("store: put %q: %w", key, err)
	}
	return e, nil
}

func (s *SQLite) FindUser(ctx context.Context, username string) (User, error) {
	row := sq.Select("id, username, password_hash, created_on").
		From("users").
		Where(sq.Eq{"username": username}).
		RunWith(s.db).
		QueryRowContext(ctx)

	var u User
	var created int64
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, fmt.Errorf("%w: user %q", ErrNotFound, username)
		}
		return User{}, fmt.Errorf("store: find user %q: %w", username, err)
	}
	u.CreatedAt = time.Unix(created, 0)
	return u, nil
}

func (s *SQLite) CreateUser(ctx context.Context, username, passwordHash string) (User, error) {
	u := User{Username: username, PasswordHash: passwordHash, CreatedAt: time.Unix(s.now().Unix(), 0)}
	result, err := sq.Insert("users").
		Columns("username", "password_hash", "created_on").
		Values(username, passwordHash, u.CreatedAt.Unix()).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return User{}, fmt.Errorf("%w: %q", ErrUserExists, username)
		}
		return User{}, fmt.Errorf("store: create user %q: %w", username, err)
	}
	u.ID, err = result.LastInsertId()
	if err != nil {
		return User{}, fmt.Errorf("store: create user %q: %w", username, err)
	}
	return u, nil
}
