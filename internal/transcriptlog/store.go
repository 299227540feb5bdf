// Package transcriptlog persists finished conversation exchanges to
// PostgreSQL for auditing. It is optional: when no DSN is configured the
// pipeline simply runs without a recorder.
//
// The log is an audit record, not conversational memory — replies are always
// generated from the in-memory history.
package transcriptlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema creates the exchange table. Kept idempotent so startup can always
// run it.
const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
	id         BIGSERIAL PRIMARY KEY,
	user_id    TEXT        NOT NULL,
	source     TEXT        NOT NULL,
	heard      TEXT        NOT NULL,
	reply      TEXT        NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS exchanges_user_created_idx ON exchanges (user_id, created_at);
`

const insertExchange = `
INSERT INTO exchanges (user_id, source, heard, reply) VALUES ($1, $2, $3, $4)`

// Store writes exchanges through a pgx connection pool. All operations are
// safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn and ensures the schema exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("transcriptlog: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("transcriptlog: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("transcriptlog: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Record inserts one exchange. source distinguishes the voice and text paths.
func (s *Store) Record(ctx context.Context, userID, source, heard, reply string) error {
	if _, err := s.pool.Exec(ctx, insertExchange, userID, source, heard, reply); err != nil {
		return fmt.Errorf("transcriptlog: insert exchange: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable. Used as a readiness check.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
