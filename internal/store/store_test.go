package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "painting.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func kvImplementations(t *testing.T) map[string]KV {
	return map[string]KV{
		"sqlite": openTestDB(t),
		"memory": NewMemoryKV(),
	}
}

func TestKVGetMissing(t *testing.T) {
	for name, kv := range kvImplementations(t) {
		t.Run(name, func(t *testing.T) {
			_, err := kv.Get(context.Background(), BackgroundKey)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestKVPutOverwritesAndVersions(t *testing.T) {
	ctx := context.Background()
	for name, kv := range kvImplementations(t) {
		t.Run(name, func(t *testing.T) {
			first, err := kv.Put(ctx, BackgroundKey, "data:a")
			require.NoError(t, err)
			assert.Equal(t, int64(1), first.Version)

			second, err := kv.Put(ctx, BackgroundKey, "data:b")
			require.NoError(t, err)
			assert.Equal(t, int64(2), second.Version)

			got, err := kv.Get(ctx, BackgroundKey)
			require.NoError(t, err)
			assert.Equal(t, "data:b", got.Value)
			assert.Equal(t, int64(2), got.Version)
			assert.WithinDuration(t, time.Now(), got.UpdatedAt, time.Minute)

			other, err := kv.Put(ctx, "other", "x")
			require.NoError(t, err)
			assert.Equal(t, int64(1), other.Version, "versions are per key")
		})
	}
}

func TestKVConcurrentPutsAreAllCounted(t *testing.T) {
	ctx := context.Background()
	for name, kv := range kvImplementations(t) {
		t.Run(name, func(t *testing.T) {
			const writers = 8
			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := kv.Put(ctx, BackgroundKey, "v")
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			got, err := kv.Get(ctx, BackgroundKey)
			require.NoError(t, err)
			assert.Equal(t, int64(writers), got.Version)
		})
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.FindUser(ctx, "ada")
	assert.ErrorIs(t, err, ErrNotFound)

	created, err := db.CreateUser(ctx, "ada", "hash-1")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	found, err := db.FindUser(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "hash-1", found.PasswordHash)

	_, err = db.CreateUser(ctx, "ada", "hash-2")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestOpenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "painting.db")

	db, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = db.Put(ctx, BackgroundKey, "kept")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()
	got, err := db.Get(ctx, BackgroundKey)
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Value)
}
