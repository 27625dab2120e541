package session

import (
	"context"
	"testing"
	"time"

	"github.com/jinford/kb-chat/internal/core/ask"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutAndGet(t *testing.T) {
	store := NewMemoryStore(time.Hour)

	profile := ask.UserProfile{
		GradeLevels: []string{"5th"},
		Role:        "teacher",
		SessionID:   "s-1",
	}
	require.NoError(t, store.Put(context.Background(), "s-1", profile, 0))

	got, err := store.Get(context.Background(), "s-1")
	require.NoError(t, err)
	p, ok := got.Get()
	require.True(t, ok)
	assert.Equal(t, profile, p)
}

func TestMemoryStore_GetMissingReturnsNone(t *testing.T) {
	store := NewMemoryStore(time.Hour)

	got, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.True(t, got.IsAbsent())
}

func TestMemoryStore_ExpiredEntryIsEvicted(t *testing.T) {
	store := NewMemoryStore(time.Hour)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	require.NoError(t, store.Put(context.Background(), "s-1", ask.UserProfile{Role: "teacher"}, 30*time.Minute))

	// TTL内は取得できる
	got, err := store.Get(context.Background(), "s-1")
	require.NoError(t, err)
	assert.True(t, got.IsPresent())

	// TTL超過後は None になり、エントリも消える
	current = current.Add(31 * time.Minute)
	got, err = store.Get(context.Background(), "s-1")
	require.NoError(t, err)
	assert.True(t, got.IsAbsent())

	current = current.Add(-31 * time.Minute)
	got, err = store.Get(context.Background(), "s-1")
	require.NoError(t, err)
	assert.True(t, got.IsAbsent())
}

func TestMemoryStore_PutOverwritesProfileAndTTL(t *testing.T) {
	store := NewMemoryStore(time.Hour)

	require.NoError(t, store.Put(context.Background(), "s-1", ask.UserProfile{Role: "first"}, 0))
	require.NoError(t, store.Put(context.Background(), "s-1", ask.UserProfile{Role: "second"}, 0))

	got, err := store.Get(context.Background(), "s-1")
	require.NoError(t, err)
	p, ok := got.Get()
	require.True(t, ok)
	assert.Equal(t, "second", p.Role)
}

func TestMemoryStore_DeleteIsIdempotent(t *testing.T) {
	store := NewMemoryStore(time.Hour)

	require.NoError(t, store.Put(context.Background(), "s-1", ask.UserProfile{Role: "teacher"}, 0))
	require.NoError(t, store.Delete(context.Background(), "s-1"))

	got, err := store.Get(context.Background(), "s-1")
	require.NoError(t, err)
	assert.True(t, got.IsAbsent())

	// 2回目の削除もエラーにならない
	require.NoError(t, store.Delete(context.Background(), "s-1"))
}
