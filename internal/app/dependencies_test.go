package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-subscribe/internal/config"
	"github.com/noah-isme/toko-subscribe/internal/meta"
	"github.com/noah-isme/toko-subscribe/internal/scheme"
	"github.com/noah-isme/toko-subscribe/internal/session"
	"github.com/noah-isme/toko-subscribe/internal/subscription"
)

func testConfig(backend string) *config.Config {
	return &config.Config{
		MetaBackend:            backend,
		SessionTTL:             time.Hour,
		InitialPercent:         decimal.NewFromInt(40),
		CartDefaultToSubscribe: true,
		SupportedProductTypes:  []string{"simple"},
		LockTTL:                time.Second,
		LockRetryBackoff:       time.Millisecond,
	}
}

func TestMetaStoreSelection(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := MetaStore(testConfig(config.MetaBackendRedis), Dependencies{Redis: client})
	require.NoError(t, err)
	require.IsType(t, &meta.RedisStore{}, store)

	_, err = MetaStore(testConfig(config.MetaBackendPostgres), Dependencies{Redis: client})
	require.Error(t, err)
	_, err = MetaStore(testConfig(config.MetaBackendRedis), Dependencies{})
	require.Error(t, err)
	_, err = MetaStore(testConfig("sqlite"), Dependencies{})
	require.Error(t, err)
}

func TestSubscriptionServiceOverRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	client, err := ConnectRedis(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	svc, err := NewSubscriptionService(testConfig(config.MetaBackendRedis), Dependencies{Redis: client})
	require.NoError(t, err)
	require.True(t, svc.Resolver.Config.CartSubscriptionByDefault)
	require.Equal(t, "40", svc.Calculator.InitialPercent.String())
	require.False(t, svc.Catalog.Supports("variable"))

	_, err = svc.Catalog.SaveCart(ctx, []scheme.Record{{PeriodInterval: "1", Period: "month", Length: "2"}})
	require.NoError(t, err)

	in := subscription.CartInput{SessionID: "sid", Lines: []subscription.Line{{
		Key: "a", ProductID: "p1", ProductType: "simple", Quantity: 1,
		RegularPrice: decimal.NewNullDecimal(decimal.NewFromInt(20)),
	}}}
	res, _, err := svc.Resolve(ctx, in)
	require.NoError(t, err)
	require.Equal(t, "1_month_2", res.CartSchemeID)

	require.NoError(t, svc.SelectCartScheme(ctx, "sid", "0"))
	require.Equal(t, "0", mr.HGet("session:sid", session.KeyCartScheme))
	require.Equal(t, time.Hour, mr.TTL("session:sid"))
}

func TestConnectRedisRejectsBadURL(t *testing.T) {
	_, err := ConnectRedis(context.Background(), "://nope")
	require.Error(t, err)
}

func TestCloserNeedsConnections(t *testing.T) {
	_, err := NewCloser(testConfig(config.MetaBackendPostgres), Dependencies{})
	require.Error(t, err)
	_, err = NewSubscriptionService(testConfig(config.MetaBackendPostgres), Dependencies{})
	require.Error(t, err)
}
