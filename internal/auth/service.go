// Package auth verifies a username and password, registering unknown users
// on first contact. There are no sessions or tokens: every call stands alone.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"PaintingOnWeb/internal/store"
)

var (
	ErrInvalidPassword    = errors.New("auth: invalid password")
	ErrInvalidCredentials = errors.New("auth: username and password are required")
)

type Mode string

const (
	ModeRegistered Mode = "registered"
	ModeLogin      Mode = "login"
)

const maxUsernameLen = 64

type Service struct {
	users store.Users
	log   *slog.Logger
}

func NewService(users store.Users, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{users: users, log: log.With("component", "auth")}
}

// Authenticate creates the user when the name is unknown and reports
// ModeRegistered; otherwise it checks the password and reports ModeLogin or
// ErrInvalidPassword. The username is matched exactly as given.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Mode, error) {
	if username == "" || password == "" || len(username) > maxUsernameLen {
		return "", ErrInvalidCredentials
	}

	user, err := s.users.FindUser(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		mode, regErr := s.register(ctx, username, password)
		if !errors.Is(regErr, store.ErrUserExists) {
			return mode, regErr
		}
		// Lost a registration race; the winner's row decides.
		user, err = s.users.FindUser(ctx, username)
	}
	if err != nil {
		return "", fmt.Errorf("auth: find user: %w", err)
	}

	ok, err := CheckPassword(user.PasswordHash, password)
	if err != nil {
		return "", fmt.Errorf("auth: check password: %w", err)
	}
	if !ok {
		s.log.Info("login rejected", "user", username)
		return "", ErrInvalidPassword
	}
	s.log.Info("login", "user", username)
	return ModeLogin, nil
}

func (s *Service) register(ctx context.Context, username, password string) (Mode, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	if _, err := s.users.CreateUser(ctx, username, hash); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return "", err
		}
		return "", fmt.Errorf("auth: create user: %w", err)
	}
	s.log.Info("registered", "user", username)
	return ModeRegistered, nil
}
