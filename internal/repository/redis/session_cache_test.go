// internal/repository/redis/session_cache_test.go
package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"sentra-service/internal/domain/session"
	xerrors "sentra-service/internal/pkg/errors"
	redisrepo "sentra-service/internal/repository/redis"
)

func setupCache(t *testing.T) (*miniredis.Miniredis, *redisrepo.SessionCache) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := red.NewClient(&red.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, redisrepo.NewSessionCache(client, "sentra:login-session")
}

func TestSessionCacheRoundTrip(t *testing.T) {
	_, cache := setupCache(t)
	ctx := context.Background()

	key := "sentra:login-session:abc"
	require.NoError(t, cache.Set(ctx, key, session.CacheValue{User: "user-1"}, time.Minute))

	value, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "user-1", value.User)
}

func TestSessionCacheGetAbsent(t *testing.T) {
	_, cache := setupCache(t)

	_, err := cache.Get(context.Background(), "sentra:login-session:missing")
	require.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestSessionCacheTTLExpiry(t *testing.T) {
	mr, cache := setupCache(t)
	ctx := context.Background()

	key := "sentra:login-session:abc"
	require.NoError(t, cache.Set(ctx, key, session.CacheValue{User: "user-1"}, time.Second))

	mr.FastForward(2 * time.Second)

	_, err := cache.Get(ctx, key)
	require.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestSessionCacheRejectsNonPositiveTTL(t *testing.T) {
	_, cache := setupCache(t)

	err := cache.Set(context.Background(), "sentra:login-session:abc", session.CacheValue{User: "u"}, 0)
	require.Error(t, err)
}

func TestSessionCacheDeleteIsIdempotent(t *testing.T) {
	_, cache := setupCache(t)
	ctx := context.Background()

	key := "sentra:login-session:abc"
	require.NoError(t, cache.Set(ctx, key, session.CacheValue{User: "user-1"}, time.Minute))
	require.NoError(t, cache.Delete(ctx, key))
	require.NoError(t, cache.Delete(ctx, key))

	_, err := cache.Get(ctx, key)
	require.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestSessionCacheClearAllScopedToNamespace(t *testing.T) {
	mr, cache := setupCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "sentra:login-session:a", session.CacheValue{User: "u1"}, time.Minute))
	require.NoError(t, cache.Set(ctx, "sentra:login-session:b", session.CacheValue{User: "u2"}, time.Minute))
	require.NoError(t, mr.Set("sentra:other:c", "keep"))

	require.NoError(t, cache.ClearAll(ctx))

	_, err := cache.Get(ctx, "sentra:login-session:a")
	require.ErrorIs(t, err, xerrors.ErrNotFound)
	_, err = cache.Get(ctx, "sentra:login-session:b")
	require.ErrorIs(t, err, xerrors.ErrNotFound)

	// Keys outside the session namespace survive the wipe.
	require.True(t, mr.Exists("sentra:other:c"))
}
