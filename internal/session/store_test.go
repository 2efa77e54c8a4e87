package session_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-subscribe/internal/session"
)

func exercise(t *testing.T, s session.Store) {
	t.Helper()
	ctx := context.Background()

	v, err := s.Get(ctx, "sid-1", session.KeyCartScheme, "")
	require.NoError(t, err)
	require.Empty(t, v)

	require.NoError(t, s.Set(ctx, "sid-1", session.KeyCartScheme, "1_month_3"))
	require.NoError(t, s.Set(ctx, "sid-1", session.ItemKey("abc"), "0"))
	require.NoError(t, s.Set(ctx, "sid-1", session.KeyCartScheme, "1_week_0"))

	v, err = s.Get(ctx, "sid-1", session.KeyCartScheme, "")
	require.NoError(t, err)
	require.Equal(t, "1_week_0", v)

	v, err = s.Get(ctx, "sid-1", session.ItemKey("abc"), "unset")
	require.NoError(t, err)
	require.Equal(t, "0", v)

	v, err = s.Get(ctx, "sid-2", session.KeyCartScheme, "fallback")
	require.NoError(t, err)
	require.Equal(t, "fallback", v)

	_, err = s.Get(ctx, " ", session.KeyCartScheme, "")
	require.ErrorIs(t, err, session.ErrNoSession)
	require.ErrorIs(t, s.Set(ctx, "", session.KeyCartScheme, "x"), session.ErrNoSession)
}

func TestMemoryStore(t *testing.T) {
	exercise(t, &session.Memory{})
}

func TestMemoryStoreExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &session.Memory{TTL: time.Hour, Now: func() time.Time { return now }}
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "sid", session.KeyCartScheme, "1_month_3"))
	now = now.Add(59 * time.Minute)
	v, err := s.Get(ctx, "sid", session.KeyCartScheme, "")
	require.NoError(t, err)
	require.Equal(t, "1_month_3", v)

	now = now.Add(2 * time.Minute)
	v, err = s.Get(ctx, "sid", session.KeyCartScheme, "")
	require.NoError(t, err)
	require.Empty(t, v)
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := &session.RedisStore{R: client, TTL: 30 * time.Minute}
	exercise(t, s)
	require.Equal(t, 30*time.Minute, mr.TTL("session:sid-1"))

	mr.FastForward(31 * time.Minute)
	v, err := s.Get(context.Background(), "sid-1", session.KeyCartScheme, "gone")
	require.NoError(t, err)
	require.Equal(t, "gone", v)
}
