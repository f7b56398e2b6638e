// Package pgkv stores key-value entries in a PostgreSQL table.
package pgkv

import (
	"context"
	"errors"
	"fmt"

	ierrors "github.com/abgdnv/inventory/internal/errors"
	"github.com/abgdnv/inventory/internal/kv/pgkv/db"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore implements kv.Store on top of the kv_entries table.
type PgStore struct {
	q *db.Queries
}

// NewPgStore creates a new PgStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{
		q: db.New(dbp),
	}
}

// Get returns the value stored under key.
// Returns ErrKeyNotFound if no row exists for the key.
func (p *PgStore) Get(ctx context.Context, key string) (string, error) {
	value, err := p.q.GetValue(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ierrors.ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to get value for key %s: %w", key, err)
	}
	return value, nil
}

// Set inserts or replaces the value stored under key.
func (p *PgStore) Set(ctx context.Context, key, value string) error {
	if err := p.q.UpsertValue(ctx, db.UpsertValueParams{Key: key, Value: value}); err != nil {
		return fmt.Errorf("failed to set value for key %s: %w", key, err)
	}
	return nil
}
