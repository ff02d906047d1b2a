// Package remote is the authoritative store: a hosted Postgres reached
// through database/sql. All writes are id-keyed upserts so replayed
// operations stay idempotent.
package remote

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

type Repository struct {
	db *sql.DB
}

// NewRepository opens the pool, pings it, and applies schema migrations.
// An empty databaseURL is the caller's signal that no remote store is
// configured; that case is handled above this layer, not here.
func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("run schema migrations: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Ping verifies the connection is still alive.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// nullable maps an empty string to NULL for creator and link columns.
func nullable(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func fromNull(s sql.NullString) string {
	if !s.Valid {
		return ""
	}
	return s.String
}

// inTx runs fn inside a transaction, rolling back on error.
func (r *Repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// EnsureAnonymousUser upserts an anonymous identity row so creator columns
// written by anonymous clients never reference a missing id.
func (r *Repository) EnsureAnonymousUser(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	const q = `INSERT INTO anonymous_users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("upsert anonymous user: %w", err)
	}
	return nil
}
