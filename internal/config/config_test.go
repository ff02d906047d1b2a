package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LEAGUE_CONFIG", "DATABASE_URL", "REDIS_URL", "CACHE_NAMESPACE", "DEFAULT_ELO", "RUN_MIGRATION"} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("DATABASE_URL", "postgres://localhost/league")
	t.Setenv("DEFAULT_ELO", "1200")
	t.Setenv("RUN_MIGRATION", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Fatalf("redis url: %q", cfg.RedisURL)
	}
	if cfg.DatabaseURL != "postgres://localhost/league" {
		t.Fatalf("database url: %q", cfg.DatabaseURL)
	}
	if cfg.DefaultElo != 1200 {
		t.Fatalf("default elo: %d", cfg.DefaultElo)
	}
	if cfg.RunMigration {
		t.Fatal("run migration should be disabled")
	}
	if cfg.CacheNamespace != "leaguetrack" {
		t.Fatalf("namespace default: %q", cfg.CacheNamespace)
	}
}

func TestLoadRequiresRedisURL(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); err == nil {
		t.Fatal("expected error without REDIS_URL")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `redis_url: redis://file:6379
cache_namespace: fromfile
default_elo: 1000
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	t.Setenv("LEAGUE_CONFIG", path)
	t.Setenv("REDIS_URL", "redis://env:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RedisURL != "redis://env:6379" {
		t.Fatalf("env should win: %q", cfg.RedisURL)
	}
	if cfg.CacheNamespace != "fromfile" {
		t.Fatalf("file value lost: %q", cfg.CacheNamespace)
	}
	if cfg.DefaultElo != 1000 {
		t.Fatalf("file elo lost: %d", cfg.DefaultElo)
	}
}
