// Package credential persists the records-store token client-side under a
// versioned storage key. A parallel manual-override flag distinguishes
// "user supplied their own token" from "using the built-in default", so
// shipping a new default auto-migrates users who never customized it.
//
// The generative-service key is deliberately not handled here: it is read
// once from process configuration and never persisted.
package credential

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Storage keys are versioned to force a refresh when the default token
// changes incompatibly.
const (
	tokenKey      = "records_token_v3"
	manualFlagKey = "records_token_v3_manual"
)

// Store is a SQLite-backed credential store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the credential database at path and configures
// WAL mode.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "credential: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "credential: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS credentials (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// Migrate creates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "credential: migrate")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Resolve returns the token to use given the shipped default. A stale
// stored token is auto-healed to the new default unless the user manually
// overrode it; a missing token is seeded with the default.
func (s *Store) Resolve(ctx context.Context, defaultToken string) (string, error) {
	stored, found, err := s.get(ctx, tokenKey)
	if err != nil {
		return "", err
	}
	manual, _, err := s.get(ctx, manualFlagKey)
	if err != nil {
		return "", err
	}

	if manual == "true" && found {
		return stored, nil
	}

	if !found || stored != defaultToken {
		if err := s.set(ctx, tokenKey, defaultToken); err != nil {
			return "", err
		}
	}
	return defaultToken, nil
}

// Override stores a user-supplied token and marks it as a manual override
// so future default changes leave it alone.
func (s *Store) Override(ctx context.Context, token string) error {
	if err := s.set(ctx, tokenKey, token); err != nil {
		return err
	}
	return s.set(ctx, manualFlagKey, "true")
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM credentials WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrapf(err, "credential: get %s", key)
	}
	return value, true, nil
}

func (s *Store) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	return eris.Wrapf(err, "credential: set %s", key)
}
