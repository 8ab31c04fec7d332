package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestFeedCachePutGet(t *testing.T) {
	ctx := context.Background()
	c := NewFeedCache(newTestClient(t), "listenboard:feed")

	_, err := c.Get(ctx)
	require.ErrorIs(t, err, ErrFeedMissing)

	doc := []byte(`{"timestamp":"2026-10-16T10:00:00"}`)
	require.NoError(t, c.Put(ctx, doc))

	got, err := c.Get(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, string(doc), string(got))
}

func TestFeedCacheUpdates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewFeedCache(newTestClient(t), "listenboard:feed")
	updates := c.Updates(ctx)

	require.NoError(t, c.Put(ctx, []byte(`{}`)))

	select {
	case _, ok := <-updates:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("no update signal after Put")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-updates:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCheckFeedKey(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	size, err := CheckFeedKey(ctx, client, "listenboard:feed")
	require.NoError(t, err)
	assert.Zero(t, size)

	require.NoError(t, NewFeedCache(client, "listenboard:feed").Put(ctx, []byte(`{"a":1}`)))
	size, err = CheckFeedKey(ctx, client, "listenboard:feed")
	require.NoError(t, err)
	assert.Equal(t, int64(7), size)

	_, err = CheckFeedKey(ctx, nil, "listenboard:feed")
	assert.Error(t, err)
}
