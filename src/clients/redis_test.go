package clients

import (
	"context"
	"sort"
	"testing"
	"time"

	"presence-svc/src/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return WrapRedis(client, 10), mr
}

func TestRedisClient_GetMissingKey(t *testing.T) {
	rc, _ := newTestRedis(t)

	_, err := rc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrKeyNotFound)
}

func TestRedisClient_SetWithTTL(t *testing.T) {
	rc, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.SetWithTTL(ctx, "k", "v", 10*time.Second))

	val, err := rc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	ttl, err := rc.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, ttl)

	mr.FastForward(11 * time.Second)

	exists, err := rc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisClient_TTL(t *testing.T) {
	rc, _ := newTestRedis(t)
	ctx := context.Background()

	_, err := rc.TTL(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrKeyNotFound)

	require.NoError(t, rc.Set(ctx, "forever", "1"))
	ttl, err := rc.TTL(ctx, "forever")
	require.NoError(t, err)
	assert.Less(t, ttl, time.Duration(0))
}

func TestRedisClient_Expire(t *testing.T) {
	rc, _ := newTestRedis(t)
	ctx := context.Background()

	existed, err := rc.Expire(ctx, "missing", time.Minute)
	require.NoError(t, err)
	assert.False(t, existed)

	require.NoError(t, rc.SetWithTTL(ctx, "k", "v", time.Second))
	existed, err = rc.Expire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, existed)

	ttl, err := rc.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)
}

func TestRedisClient_Delete(t *testing.T) {
	rc, _ := newTestRedis(t)
	ctx := context.Background()

	n, err := rc.Delete(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, rc.Set(ctx, "a", "1"))
	require.NoError(t, rc.Set(ctx, "b", "2"))

	n, err = rc.Delete(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRedisClient_Sets(t *testing.T) {
	rc, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.SetAdd(ctx, "s", "u1", "u2", "u3"))
	require.NoError(t, rc.SetAdd(ctx, "s", "u1"))
	require.NoError(t, rc.SetRemove(ctx, "s", "u2"))
	require.NoError(t, rc.SetRemove(ctx, "s"))

	members, err := rc.SetMembers(ctx, "s")
	require.NoError(t, err)
	sort.Strings(members)
	assert.Equal(t, []string{"u1", "u3"}, members)

	empty, err := rc.SetMembers(ctx, "none")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRedisClient_Scan(t *testing.T) {
	rc, _ := newTestRedis(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, rc.Set(ctx, "user:"+id+":online", "ONLINE"))
	}
	require.NoError(t, rc.Set(ctx, "user:a:lastActive", "x"))

	keys, err := rc.Scan(ctx, "user:*:online")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"user:a:online", "user:b:online", "user:c:online"}, keys)
}

func TestRedisClient_Unavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	rc := WrapRedis(client, 10)
	mr.Close()

	_, err = rc.Exists(context.Background(), "k")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrKeyNotFound)
}
