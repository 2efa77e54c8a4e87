package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":                "postgres://localhost:5432/subscribe",
		"REDIS_URL":                   "redis://localhost:6379/0",
		"APP_ENV":                     "",
		"OPS_PORT":                    "",
		"META_BACKEND":                "",
		"SESSION_TTL":                 "",
		"INSTALLMENT_INITIAL_PERCENT": "",
		"CART_SUBSCRIPTION_DEFAULT":   "",
		"SUPPORTED_PRODUCT_TYPES":     "",
		"WORKER_CONCURRENCY":          "",
		"OBS_TRACING_SAMPLING_RATIO":  "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":9090", cfg.OpsAddr())
	require.Equal(t, MetaBackendPostgres, cfg.MetaBackend)
	require.Equal(t, 48*time.Hour, cfg.SessionTTL)
	require.True(t, cfg.InitialPercent.IsZero())
	require.False(t, cfg.CartDefaultToSubscribe)
	require.Equal(t, []string{"simple", "variable"}, cfg.SupportedProductTypes)
	require.Equal(t, 10, cfg.WorkerConcurrency)
	require.Equal(t, 30*time.Second, cfg.LockTTL)
	require.Equal(t, 1.0, cfg.TracingSampling)
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["OPS_PORT"] = ":7000"
	env["META_BACKEND"] = "Redis"
	env["SESSION_TTL"] = "2h"
	env["INSTALLMENT_INITIAL_PERCENT"] = "25.5"
	env["CART_SUBSCRIPTION_DEFAULT"] = "yes"
	env["SUPPORTED_PRODUCT_TYPES"] = " simple , bundle ,"
	env["WORKER_CONCURRENCY"] = "4"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, ":7000", cfg.OpsAddr())
	require.Equal(t, MetaBackendRedis, cfg.MetaBackend)
	require.Equal(t, 2*time.Hour, cfg.SessionTTL)
	require.Equal(t, "25.5", cfg.InitialPercent.String())
	require.True(t, cfg.CartDefaultToSubscribe)
	require.Equal(t, []string{"simple", "bundle"}, cfg.SupportedProductTypes)
	require.Equal(t, 4, cfg.WorkerConcurrency)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"missing database": {"DATABASE_URL": ""},
		"missing redis":    {"REDIS_URL": ""},
		"bad backend":      {"META_BACKEND": "mysql"},
		"percent too high": {"INSTALLMENT_INITIAL_PERCENT": "120"},
		"percent garbage":  {"INSTALLMENT_INITIAL_PERCENT": "ten"},
		"zero workers":     {"WORKER_CONCURRENCY": "0"},
		"sampling":         {"OBS_TRACING_SAMPLING_RATIO": "2"},
	}
	for name, override := range cases {
		t.Run(name, func(t *testing.T) {
			env := baseEnv()
			for k, v := range override {
				env[k] = v
			}
			_, err := LoadForTests(env)
			require.Error(t, err)
		})
	}
}

func TestHelpers(t *testing.T) {
	require.Equal(t, 5*time.Second, parseDuration("nope", "5s"))
	require.True(t, parseBool("ON"))
	require.False(t, parseBool(""))
	require.Equal(t, 3, parseInt("x", 3))
	require.Nil(t, splitAndTrim(""))
	require.Equal(t, "fallback", valueOrDefault("  ", "fallback"))
}
