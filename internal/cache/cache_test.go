package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, time.Minute), mr
}

func TestCachePutGet(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	key := ProjectKey("my-lib", "1.3", "json")
	doc := Document{ContentType: "application/vnd.pypi.simple.v1+json", Body: []byte(`{"name":"my-lib"}`)}

	require.NoError(t, c.Put(ctx, key, doc))

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, doc.ContentType, got.ContentType)
	assert.Equal(t, doc.Body, got.Body)
}

func TestCacheMiss(t *testing.T) {
	c, _ := setupTestCache(t)

	got, ok, err := c.Get(context.Background(), ProjectKey("nope", "1.3", "json"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestCacheCorruptEntryIsMiss(t *testing.T) {
	c, mr := setupTestCache(t)
	key := ProjectKey("my-lib", "1.3", "json")
	require.NoError(t, mr.Set(key, "not json"))

	_, ok, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidateProjectRemovesAllFormats(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	doc := Document{ContentType: "text/html", Body: []byte("<html></html>")}
	require.NoError(t, c.Put(ctx, ProjectKey("my-lib", "1.3", "json"), doc))
	require.NoError(t, c.Put(ctx, ProjectKey("my-lib", "1.3", "html"), doc))
	require.NoError(t, c.Put(ctx, ProjectKey("other-lib", "1.3", "json"), doc))

	require.NoError(t, c.InvalidateProject(ctx, "my-lib"))

	_, ok, _ := c.Get(ctx, ProjectKey("my-lib", "1.3", "json"))
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, ProjectKey("my-lib", "1.3", "html"))
	assert.False(t, ok)

	// Unrelated project untouched.
	_, ok, _ = c.Get(ctx, ProjectKey("other-lib", "1.3", "json"))
	assert.True(t, ok)
}

func TestInvalidateIndex(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	doc := Document{ContentType: "text/html", Body: []byte("<html></html>")}
	require.NoError(t, c.Put(ctx, IndexKey("1.3", "html"), doc))
	require.NoError(t, c.InvalidateIndex(ctx))

	_, ok, _ := c.Get(ctx, IndexKey("1.3", "html"))
	assert.False(t, ok)
}

func TestTTLExpiry(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	key := ProjectKey("my-lib", "1.3", "json")
	require.NoError(t, c.Put(ctx, key, Document{ContentType: "x", Body: []byte("y")}))

	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
