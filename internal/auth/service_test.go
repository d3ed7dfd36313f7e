package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaintingOnWeb/internal/store"
)

// memUsers is an in-memory store.Users.
type memUsers struct {
	mu    sync.Mutex
	users map[string]store.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]store.User)}
}

func (m *memUsers) FindUser(_ context.Context, username string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return store.User{}, fmt.Errorf("%w: %s", store.ErrNotFound, username)
	}
	return u, nil
}

func (m *memUsers) CreateUser(_ context.Context, username, hash string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; ok {
		return store.User{}, store.ErrUserExists
	}
	u := store.User{ID: int64(len(m.users) + 1), Username: username, PasswordHash: hash}
	m.users[username] = u
	return u, nil
}

// racingUsers reports the user missing once, then loses the insert race.
type racingUsers struct {
	*memUsers
	once sync.Once
}

func (r *racingUsers) FindUser(ctx context.Context, username string) (store.User, error) {
	missing := false
	r.once.Do(func() { missing = true })
	if missing {
		return store.User{}, store.ErrNotFound
	}
	return r.memUsers.FindUser(ctx, username)
}

func TestAuthenticateRegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	svc := NewService(users, nil)

	mode, err := svc.Authenticate(ctx, "ada", "lovelace")
	require.NoError(t, err)
	assert.Equal(t, ModeRegistered, mode)

	mode, err = svc.Authenticate(ctx, "ada", "lovelace")
	require.NoError(t, err)
	assert.Equal(t, ModeLogin, mode)

	_, err = svc.Authenticate(ctx, "ada", "babbage")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestPasswordIsNotStoredInPlainText(t *testing.T) {
	users := newMemUsers()
	_, err := NewService(users, nil).Authenticate(context.Background(), "ada", "lovelace")
	require.NoError(t, err)

	stored := users.users["ada"].PasswordHash
	assert.NotEqual(t, "lovelace", stored)
	assert.NotContains(t, stored, "lovelace")
}

func TestAuthenticateRejectsEmptyCredentials(t *testing.T) {
	svc := NewService(newMemUsers(), nil)
	for _, tc := range []struct{ user, pass string }{
		{"", "secret"},
		{"ada", ""},
		{strings.Repeat("a", maxUsernameLen+1), "secret"},
	} {
		_, err := svc.Authenticate(context.Background(), tc.user, tc.pass)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
}

func TestAuthenticateLosingRegistrationRaceFallsBackToLogin(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	hash, err := HashPassword("winner")
	require.NoError(t, err)
	_, err = users.CreateUser(ctx, "ada", hash)
	require.NoError(t, err)

	svc := NewService(&racingUsers{memUsers: users}, nil)
	mode, err := svc.Authenticate(ctx, "ada", "winner")
	require.NoError(t, err)
	assert.Equal(t, ModeLogin, mode)

	svc = NewService(&racingUsers{memUsers: users}, nil)
	_, err = svc.Authenticate(ctx, "ada", "loser")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	ok, err := CheckPassword(hash, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPassword("not-a-hash", "s3cret")
	assert.Error(t, err)
}

func TestAuthenticateMatchesUsernameExactly(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemUsers(), nil)

	mode, err := svc.Authenticate(ctx, "alice", "one")
	require.NoError(t, err)
	assert.Equal(t, ModeRegistered, mode)

	mode, err = svc.Authenticate(ctx, "alice ", "two")
	require.NoError(t, err)
	assert.Equal(t, ModeRegistered, mode, "trailing space is a different user")

	mode, err = svc.Authenticate(ctx, "   ", "three")
	require.NoError(t, err)
	assert.Equal(t, ModeRegistered, mode)
}

func TestLongPasswords(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemUsers(), nil)
	long := strings.Repeat("p", 80)

	mode, err := svc.Authenticate(ctx, "ada", long)
	require.NoError(t, err)
	assert.Equal(t, ModeRegistered, mode)

	mode, err = svc.Authenticate(ctx, "ada", long)
	require.NoError(t, err)
	assert.Equal(t, ModeLogin, mode)

	// Passwords sharing the first 72 bytes must still differ.
	_, err = svc.Authenticate(ctx, "ada", strings.Repeat("p", 72)+"different")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}
