package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-subscribe/internal/catalog"
	"github.com/noah-isme/toko-subscribe/internal/config"
	"github.com/noah-isme/toko-subscribe/internal/installment"
	"github.com/noah-isme/toko-subscribe/internal/ledger"
	"github.com/noah-isme/toko-subscribe/internal/lock"
	"github.com/noah-isme/toko-subscribe/internal/meta"
	"github.com/noah-isme/toko-subscribe/internal/obs"
	"github.com/noah-isme/toko-subscribe/internal/resolver"
	"github.com/noah-isme/toko-subscribe/internal/session"
	"github.com/noah-isme/toko-subscribe/internal/subscription"
)

// Dependencies enumerates the shared connections every component is built from.
type Dependencies struct {
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Logger *zerolog.Logger
}

// ConnectPostgres opens a traced pgx pool and checks it is reachable.
func ConnectPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// ConnectRedis opens a traced Redis client and checks it is reachable.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("instrument redis tracing: %w", err)
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// MetaStore returns the metadata backend selected by META_BACKEND.
func MetaStore(cfg *config.Config, deps Dependencies) (meta.Store, error) {
	switch cfg.MetaBackend {
	case config.MetaBackendRedis:
		if deps.Redis == nil {
			return nil, errors.New("app: redis meta backend needs a redis client")
		}
		return &meta.RedisStore{R: deps.Redis}, nil
	case config.MetaBackendPostgres, "":
		if deps.DB == nil {
			return nil, errors.New("app: postgres meta backend needs a database pool")
		}
		return meta.NewPGStore(deps.DB), nil
	default:
		return nil, fmt.Errorf("app: unknown meta backend %q", cfg.MetaBackend)
	}
}

// NewCatalog builds the scheme catalog over the configured metadata backend.
func NewCatalog(cfg *config.Config, deps Dependencies) (*catalog.Catalog, error) {
	store, err := MetaStore(cfg, deps)
	if err != nil {
		return nil, err
	}
	return &catalog.Catalog{Store: store, Logger: deps.Logger, SupportedTypes: cfg.SupportedProductTypes}, nil
}

// NewSubscriptionService builds the cart subscription service.
func NewSubscriptionService(cfg *config.Config, deps Dependencies) (*subscription.Service, error) {
	cat, err := NewCatalog(cfg, deps)
	if err != nil {
		return nil, err
	}
	if deps.Redis == nil {
		return nil, errors.New("app: session store needs a redis client")
	}
	return &subscription.Service{
		Catalog:    cat,
		Sessions:   &session.RedisStore{R: deps.Redis, TTL: cfg.SessionTTL},
		Resolver:   resolver.Resolver{Config: resolver.Config{CartSubscriptionByDefault: cfg.CartDefaultToSubscribe}},
		Calculator: installment.Calculator{InitialPercent: cfg.InitialPercent},
		Logger:     deps.Logger,
	}, nil
}

// NewCloser builds the plan closer over the Postgres ledger with Redis locking.
func NewCloser(cfg *config.Config, deps Dependencies) (*ledger.Closer, error) {
	if deps.DB == nil || deps.Redis == nil {
		return nil, errors.New("app: plan closer needs a database pool and a redis client")
	}
	return &ledger.Closer{
		Gateway: ledger.NewPGGateway(deps.DB),
		Locker:  lock.Locker{R: deps.Redis, RetryBackoff: cfg.LockRetryBackoff},
		LockTTL: cfg.LockTTL,
		Logger:  deps.Logger,
	}, nil
}
