// Package store holds the two backend bindings: a key-value store for the
// global settings (the shared background) and the users table.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("store: not found")
	ErrUserExists = errors.New("store: user already exists")
)

// BackgroundKey is the KV key of the single global background value.
const BackgroundKey = "global_background"

// Entry is a KV value with its write metadata. Version starts at 1 and grows
// by one on every Put of the key, so racing writers can tell who won.
type Entry struct {
	Key       string
	Value     string
	Version   int64
	UpdatedAt time.Time
}

type KV interface {
	Get(ctx context.Context, key string) (Entry, error)
	Put(ctx context.Context, key, value string) (Entry, error)
}

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type Users interface {
	FindUser(ctx context.Context, username string) (User, error)
	CreateUser(ctx context.Context, username, passwordHash string) (User, error)
}
