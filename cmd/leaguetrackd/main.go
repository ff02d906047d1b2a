package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kapu/league-tracker-go/internal/cache"
	appcfg "github.com/kapu/league-tracker-go/internal/config"
	"github.com/kapu/league-tracker-go/internal/gateway"
	"github.com/kapu/league-tracker-go/internal/migration"
	"github.com/kapu/league-tracker-go/internal/obslog"
	"github.com/kapu/league-tracker-go/internal/remote"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	store, err := cache.NewStoreFromURL(cfg.RedisURL, cfg.CacheNamespace)
	if err != nil {
		log.Fatalf("cache init error: %v", err)
	}

	// The remote store is optional: without DATABASE_URL every operation
	// routes to the cache and data is promoted later by migration.
	var repo gateway.Remote
	var closer *remote.Repository
	if cfg.DatabaseURL != "" {
		r, err := remote.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("remote store init error: %v", err)
		}
		repo = r
		closer = r
	} else {
		obslog.L().Warn("DATABASE_URL not set, running in local-only mode")
	}

	gw := gateway.New(repo, store, gateway.WithDefaultElo(cfg.DefaultElo))

	if cfg.RunMigration && gw.Available() {
		coord := migration.New(gw, store)
		res := coord.Migrate(context.Background())
		if res.Err != "" {
			obslog.L().Error("migration error", zap.String("error", res.Err))
		}
	}

	obslog.L().Info("leaguetrackd ready",
		zap.Bool("remote_configured", gw.Available()),
		zap.String("cache_namespace", cfg.CacheNamespace))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	_ = store.Close()
	if closer != nil {
		_ = closer.Close()
	}
}
