package badger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fcanovai/rescache/pkg/server/store"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	payload := []byte("sprite sheet bytes")
	info, err := s.Put(ctx, "sprite", payload, "image", 3)
	require.NoError(t, err)

	assert.Equal(t, uint32(1), info.Version)
	assert.Equal(t, len(payload), info.Size)
	assert.Equal(t, "image", info.Type)
	assert.Equal(t, uint8(3), info.Priority)

	wantHash := sha256.Sum256(payload)
	assert.Equal(t, hex.EncodeToString(wantHash[:]), info.Hash)

	data, got, err := s.Get(ctx, "sprite")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, uint64(1), got.AccessCount)
}

func TestVersionBumpsOnReplace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Put(ctx, "res", []byte("v1"), "text", 1)
	require.NoError(t, err)
	second, err := s.Put(ctx, "res", []byte("v2"), "text", 1)
	require.NoError(t, err)

	assert.Equal(t, uint32(1), first.Version)
	assert.Equal(t, uint32(2), second.Version)
	assert.Equal(t, first.Created, second.Created, "creation time carries forward")

	v, err := s.Version(ctx, "res")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), v)

	data, _, err := s.Get(ctx, "res")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)
}

func TestNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, err := s.Get(ctx, "ghost")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = s.Info(ctx, "ghost")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = s.Version(ctx, "ghost")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	err = s.Delete(ctx, "ghost")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestListFiltersAndOrders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "b_img", []byte("x"), "image", 1)
	require.NoError(t, err)
	_, err = s.Put(ctx, "a_img", []byte("y"), "image", 1)
	require.NoError(t, err)
	_, err = s.Put(ctx, "cfg", []byte("z"), "json", 1)
	require.NoError(t, err)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a_img", all[0].ID)
	assert.Equal(t, "b_img", all[1].ID)

	images, err := s.List(ctx, "image")
	require.NoError(t, err)
	require.Len(t, images, 2)
	for _, info := range images {
		assert.Equal(t, "image", info.Type)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "res", []byte("data"), "text", 1)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "res"))

	_, _, err = s.Get(ctx, "res")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "a", make([]byte, 100), "image", 1)
	require.NoError(t, err)
	_, err = s.Put(ctx, "b", make([]byte, 50), "image", 1)
	require.NoError(t, err)
	_, err = s.Put(ctx, "c", make([]byte, 25), "json", 1)
	require.NoError(t, err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.ResourceCount)
	assert.Equal(t, int64(175), stats.TotalBytes)
	assert.Equal(t, 2, stats.ByType["image"])
	assert.Equal(t, 1, stats.ByType["json"])
}

func TestInMemoryStore(t *testing.T) {
	s, err := NewInMemory()
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = s.Put(context.Background(), "res", []byte("data"), "text", 1)
	require.NoError(t, err)

	data, _, err := s.Get(context.Background(), "res")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	s, err := NewInMemory()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	ctx := context.Background()
	_, err = s.Put(ctx, "res", []byte("data"), "text", 1)
	assert.True(t, errors.Is(err, store.ErrClosed))

	_, _, err = s.Get(ctx, "res")
	assert.True(t, errors.Is(err, store.ErrClosed))

	_, err = s.List(ctx, "")
	assert.True(t, errors.Is(err, store.ErrClosed))
}
