package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/noah-isme/toko-subscribe/internal/app"
	"github.com/noah-isme/toko-subscribe/internal/catalog"
	"github.com/noah-isme/toko-subscribe/internal/config"
	"github.com/noah-isme/toko-subscribe/internal/migrations"
	"github.com/noah-isme/toko-subscribe/internal/obs"
)

func main() {
	seedPath := flag.String("file", "", "YAML file with cart and product scheme records")
	skipMigrate := flag.Bool("skip-migrate", false, "do not apply pending migrations first")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "schemes").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !*skipMigrate {
		m, err := migrations.New(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("prepare migrations")
		}
		if err := migrations.Up(m); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("close migrations")
		}
		logger.Info().Msg("migrations applied")
	}

	if *seedPath == "" {
		return
	}
	f, err := os.Open(*seedPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open seed file")
	}
	defer f.Close()
	seed, err := catalog.ParseSeed(f)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse seed file")
	}

	deps := app.Dependencies{Logger: &logger}
	switch cfg.MetaBackend {
	case config.MetaBackendRedis:
		client, err := app.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("init redis")
		}
		defer client.Close()
		deps.Redis = client
	default:
		pool, err := app.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("init database")
		}
		defer pool.Close()
		deps.DB = pool
	}

	cat, err := app.NewCatalog(cfg, deps)
	if err != nil {
		logger.Fatal().Err(err).Msg("build catalog")
	}
	if _, err := cat.ApplySeed(ctx, seed); err != nil {
		logger.Fatal().Err(err).Msg("apply seed")
	}
}
