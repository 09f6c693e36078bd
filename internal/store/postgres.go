package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/qbank/internal/core"
)

// bankTable creates the single-document table on first use. Import history
// lives in the service, not here, so the table carries no versioning beyond
// updated_at.
const bankTable = `
CREATE TABLE IF NOT EXISTS question_bank (
	id         TEXT PRIMARY KEY,
	document   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// DefaultBankKey names the bank row when no key is configured.
const DefaultBankKey = "default"

// PostgresStore persists the bank as a jsonb document in a single row.
// Separate deployments can share the table under distinct keys.
type PostgresStore struct {
	pool *pgxpool.Pool
	key  string
}

// NewPostgres ensures the bank table exists and returns a store bound to the
// row named by key. An empty key selects DefaultBankKey.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool, key string) (*PostgresStore, error) {
	if key == "" {
		key = DefaultBankKey
	}
	if _, err := pool.Exec(ctx, bankTable); err != nil {
		return nil, fmt.Errorf("create bank table: %w", err)
	}
	return &PostgresStore{pool: pool, key: key}, nil
}

// Load reads the bank document. A missing row yields an empty envelope, same
// as a file store that has never been written.
func (s *PostgresStore) Load(ctx context.Context) (core.BankEnvelope, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT document FROM question_bank WHERE id = $1`, s.key,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.BankEnvelope{Version: core.BankVersion}, nil
	}
	if err != nil {
		return core.BankEnvelope{}, fmt.Errorf("query bank document: %w", err)
	}

	env, err := core.ReadJSON(data)
	if err != nil {
		return core.BankEnvelope{}, fmt.Errorf("parse bank document: %w", err)
	}
	return env, nil
}

// Save upserts the bank document. The single-statement write is atomic, so
// readers never observe a partially replaced bank.
func (s *PostgresStore) Save(ctx context.Context, env core.BankEnvelope) error {
	var buf bytes.Buffer
	if err := core.WriteJSON(&buf, env); err != nil {
		return fmt.Errorf("encode bank: %w", err)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO question_bank (id, document, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET document = EXCLUDED.document, updated_at = now()`,
		s.key, buf.Bytes())
	if err != nil {
		return fmt.Errorf("upsert bank document: %w", err)
	}
	return nil
}
