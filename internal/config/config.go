// Package config loads runtime settings. Environment variables win; an
// optional YAML file (LEAGUE_CONFIG) supplies anything the environment
// leaves unset.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	// DatabaseURL points at the remote Postgres store. Empty means the
	// remote store is not configured and every operation stays local.
	DatabaseURL string `yaml:"database_url"`

	// RedisURL backs the local cache and is always required.
	RedisURL string `yaml:"redis_url"`

	CacheNamespace string `yaml:"cache_namespace"`
	DefaultElo     int    `yaml:"default_elo"`
	RunMigration   bool   `yaml:"run_migration"`
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		CacheNamespace: "leaguetrack",
		DefaultElo:     1500,
		RunMigration:   true,
	}

	if path := strings.TrimSpace(os.Getenv("LEAGUE_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CACHE_NAMESPACE")); v != "" {
		cfg.CacheNamespace = v
	}
	if v := strings.TrimSpace(os.Getenv("DEFAULT_ELO")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DefaultElo = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("RUN_MIGRATION")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RunMigration = b
		}
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	return cfg, nil
}
