// Package cache is the on-device store: two namespaced JSON array blobs (all
// leagues, all tournaments) plus the migration completion flag. It is always
// available and is the fallback target whenever the remote store is not.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/kapu/league-tracker-go/internal/domain"
)

// DefaultNamespace prefixes every key this store writes.
const DefaultNamespace = "leaguetrack"

type Store struct {
	rdb *redis.Client
	ns  string
}

func NewStore(rdb *redis.Client, namespace string) *Store {
	if strings.TrimSpace(namespace) == "" {
		namespace = DefaultNamespace
	}
	return &Store{rdb: rdb, ns: namespace}
}

// NewStoreFromURL dials redis from a redis:// or rediss:// URL.
func NewStoreFromURL(redisURL, namespace string) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewStore(rdb, namespace), nil
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *Store) keyLeagues() string     { return s.ns + ":leagues" }
func (s *Store) keyTournaments() string { return s.ns + ":tournaments" }
func (s *Store) keyMigration() string   { return s.ns + ":migration:done" }

// Leagues returns every cached league; a missing blob is an empty slice.
func (s *Store) Leagues(ctx context.Context) ([]domain.League, error) {
	raw, err := s.rdb.Get(ctx, s.keyLeagues()).Bytes()
	if err == redis.Nil {
		return []domain.League{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read leagues blob: %w", err)
	}
	var leagues []domain.League
	if err := json.Unmarshal(raw, &leagues); err != nil {
		return nil, fmt.Errorf("decode leagues blob: %w", err)
	}
	return leagues, nil
}

// SaveLeagues replaces the whole leagues blob.
func (s *Store) SaveLeagues(ctx context.Context, leagues []domain.League) error {
	raw, err := json.Marshal(leagues)
	if err != nil {
		return fmt.Errorf("encode leagues blob: %w", err)
	}
	if err := s.rdb.Set(ctx, s.keyLeagues(), raw, 0).Err(); err != nil {
		return fmt.Errorf("write leagues blob: %w", err)
	}
	return nil
}

func (s *Store) Tournaments(ctx context.Context) ([]domain.Tournament, error) {
	raw, err := s.rdb.Get(ctx, s.keyTournaments()).Bytes()
	if err == redis.Nil {
		return []domain.Tournament{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tournaments blob: %w", err)
	}
	var tournaments []domain.Tournament
	if err := json.Unmarshal(raw, &tournaments); err != nil {
		return nil, fmt.Errorf("decode tournaments blob: %w", err)
	}
	return tournaments, nil
}

func (s *Store) SaveTournaments(ctx context.Context, tournaments []domain.Tournament) error {
	raw, err := json.Marshal(tournaments)
	if err != nil {
		return fmt.Errorf("encode tournaments blob: %w", err)
	}
	if err := s.rdb.Set(ctx, s.keyTournaments(), raw, 0).Err(); err != nil {
		return fmt.Errorf("write tournaments blob: %w", err)
	}
	return nil
}

// MigrationDone reports the persisted completion flag.
func (s *Store) MigrationDone(ctx context.Context) (bool, error) {
	raw, err := s.rdb.Get(ctx, s.keyMigration()).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read migration flag: %w", err)
	}
	done, _ := strconv.ParseBool(strings.TrimSpace(raw))
	return done, nil
}

func (s *Store) SetMigrationDone(ctx context.Context) error {
	if err := s.rdb.Set(ctx, s.keyMigration(), "true", 0).Err(); err != nil {
		return fmt.Errorf("write migration flag: %w", err)
	}
	return nil
}

// ResetMigrationFlag clears the flag so the next startup re-runs migration.
func (s *Store) ResetMigrationFlag(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.keyMigration()).Err(); err != nil {
		return fmt.Errorf("clear migration flag: %w", err)
	}
	return nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
