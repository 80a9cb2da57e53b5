// Package store implements C2: durable, indexed storage of messages,
// aircraft, tracks, photos, recordings, EAMs, and settings on PostgreSQL.
package store

import (
	"context"
	"embed"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/airwave/airwave/internal/apperr"
)

//go:embed sql/schema.sql
var schemaFS embed.FS

// Store is the durable storage layer. All writes go through it; it is the
// only component with mutable shared persistent state.
type Store struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

// Connect opens a pooled connection and verifies reachability.
func Connect(ctx context.Context, databaseURL string, log zerolog.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, apperr.Wrap(apperr.Fatal, "store.dsn", "invalid database URL", err)
	}

	cfg.MaxConns = 20
	cfg.MinConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, apperr.Wrap(apperr.Fatal, "store.connect", "failed to create connection pool", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperr.Wrap(apperr.Fatal, "store.ping", "database unreachable", err)
	}

	log.Info().
		Str("url", maskDSN(databaseURL)).
		Int32("max_conns", cfg.MaxConns).
		Int32("min_conns", cfg.MinConns).
		Msg("store connected")

	return &Store{Pool: pool, log: log}, nil
}

// InitSchema applies schema.sql on a fresh database. It checks for the
// "messages" table as a proxy for "already initialized".
func (s *Store) InitSchema(ctx context.Context) error {
	var exists bool
	err := s.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT FROM pg_tables WHERE schemaname = 'public' AND tablename = 'messages')`,
	).Scan(&exists)
	if err != nil {
		return apperr.Wrap(apperr.Fatal, "store.schema_check", "failed to check schema state", err)
	}
	if exists {
		s.log.Debug().Msg("schema already initialized, skipping")
		return nil
	}

	schemaSQL, err := schemaFS.ReadFile("sql/schema.sql")
	if err != nil {
		return apperr.Wrap(apperr.Fatal, "store.schema_read", "failed to read embedded schema", err)
	}

	s.log.Info().Msg("fresh database detected — applying schema")
	if _, err := s.Pool.Exec(ctx, string(schemaSQL)); err != nil {
		return apperr.Wrap(apperr.Fatal, "store.schema_apply", "failed to apply schema", err)
	}
	s.log.Info().Msg("schema applied successfully")
	return nil
}

// HealthCheck is used by the admin API's /readyz.
func (s *Store) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Pool.Ping(ctx)
}

func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		if _, hasPass := u.User.Password(); hasPass {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}
	return u.String()
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.log.Info().Msg("closing store connection pool")
	s.Pool.Close()
}
