package pgstore

// Package pgstore provides a Postgres-backed credential store for
// deployments that already carry a database (e.g. headless workers acting
// as marketplace clients). Connections use the pgx stdlib driver.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domainauth "github.com/proserve/proserve-client/internal/domain/auth"
)

// Store persists the token pair as a single row keyed by installation.
// The upsert writes both tokens in one statement, so readers observe the
// old pair or the new one, never a mix.
type Store struct {
	db  *sql.DB
	key string
}

// New creates a Postgres-backed credential store for the given key.
func New(db *sql.DB, key string) *Store {
	return &Store{db: db, key: key}
}

// EnsureSchema creates the credentials table if it does not exist.
// Call once at startup; it is idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS client_credentials (
			key           TEXT PRIMARY KEY,
			access_token  TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure credentials schema: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context) (domainauth.TokenPair, error) {
	const query = `
		SELECT access_token, refresh_token
		FROM client_credentials
		WHERE key = $1`

	var pair domainauth.TokenPair
	err := s.db.QueryRowContext(ctx, query, s.key).Scan(&pair.AccessToken, &pair.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainauth.TokenPair{}, domainauth.ErrNoCredentials
		}
		return domainauth.TokenPair{}, fmt.Errorf("query credentials: %w", err)
	}

	// Never surface a half-present pair.
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return domainauth.TokenPair{}, domainauth.ErrNoCredentials
	}

	return pair, nil
}

func (s *Store) Set(ctx context.Context, pair domainauth.TokenPair) error {
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return errors.New("both tokens are required")
	}

	const query = `
		INSERT INTO client_credentials (key, access_token, refresh_token, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    updated_at = EXCLUDED.updated_at`

	if _, err := s.db.ExecContext(ctx, query, s.key, pair.AccessToken, pair.RefreshToken); err != nil {
		return fmt.Errorf("upsert credentials: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	const query = `DELETE FROM client_credentials WHERE key = $1`

	if _, err := s.db.ExecContext(ctx, query, s.key); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}
