package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// KVRepository implements interactions.KeyValue on a single Postgres table.
type KVRepository struct {
	db *sql.DB
}

func NewKVRepository(db *sql.DB) *KVRepository {
	return &KVRepository{db: db}
}

// EnsureSchema creates the backing table when it does not exist.
func (r *KVRepository) EnsureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS interaction_kv (
  k          TEXT PRIMARY KEY,
  v          BYTEA NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);
`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

func (r *KVRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const q = `SELECT v FROM interaction_kv WHERE k=$1 LIMIT 1;`
	var v []byte
	if err := r.db.QueryRowContext(ctx, q, key).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

// Set upserts the whole value in one statement.
func (r *KVRepository) Set(ctx context.Context, key string, value []byte) error {
	const q = `
INSERT INTO interaction_kv (k, v, updated_at)
VALUES ($1,$2,$3)
ON CONFLICT (k) DO UPDATE SET
  v=EXCLUDED.v,
  updated_at=EXCLUDED.updated_at;
`
	_, err := r.db.ExecContext(ctx, q, key, value, time.Now().UTC())
	return err
}

func (r *KVRepository) Remove(ctx context.Context, key string) error {
	const q = `DELETE FROM interaction_kv WHERE k=$1;`
	_, err := r.db.ExecContext(ctx, q, key)
	return err
}

// Check pings the database.
func (r *KVRepository) Check(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
