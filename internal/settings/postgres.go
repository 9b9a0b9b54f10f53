package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS provider_settings (
	provider   text PRIMARY KEY,
	settings   jsonb NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`

// PostgresStore persists provider settings in a single jsonb-per-provider
// table.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// ConnectPostgres opens a pool, verifies connectivity, and ensures the
// settings table exists.
func ConnectPostgres(ctx context.Context, databaseURL string, log zerolog.Logger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	// Settings reads/writes are rare; a small pool is plenty.
	cfg.MaxConns = 4
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	log.Info().Str("url", maskDSN(databaseURL)).Msg("settings database connected")

	return &PostgresStore{pool: pool, log: log}, nil
}

// Load returns the persisted mapping for the provider, or an empty map
// if none has been saved yet.
func (s *PostgresStore) Load(ctx context.Context, provider string) (map[string]string, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT settings FROM provider_settings WHERE provider = $1`, provider).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	values := map[string]string{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("decode settings for %s: %w", provider, err)
	}
	return values, nil
}

// Save upserts the full mapping for the provider.
func (s *PostgresStore) Save(ctx context.Context, provider string, values map[string]string) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode settings for %s: %w", provider, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO provider_settings (provider, settings, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (provider) DO UPDATE SET settings = $2, updated_at = now()
	`, provider, raw)
	return err
}

// Ping checks database connectivity with a short timeout.
func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.log.Info().Msg("closing settings database pool")
	s.pool.Close()
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
