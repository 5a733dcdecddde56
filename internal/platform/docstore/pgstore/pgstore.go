package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shiftrota/internal/platform/docstore"
)

// Store keeps documents in the documents table created by the db
// migrations. The body column is JSON rather than JSONB so key order inside
// a document survives a round trip.
type Store struct {
	DB *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

func (s *Store) Get(ctx context.Context, collection, key string) ([]byte, error) {
	var body string
	err := s.DB.QueryRow(ctx, `
    SELECT body::text
    FROM documents
    WHERE collection = $1 AND key = $2
  `, collection, key).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	return []byte(body), nil
}

func (s *Store) List(ctx context.Context, collection string) (map[string][]byte, error) {
	rows, err := s.DB.Query(ctx, "SELECT key, body::text FROM documents WHERE collection = $1", collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	out := map[string][]byte{}
	for rows.Next() {
		var key, body string
		if err := rows.Scan(&key, &body); err != nil {
			return nil, err
		}
		out[key] = []byte(body)
	}
	return out, rows.Err()
}

func (s *Store) Put(ctx context.Context, collection, key string, doc []byte) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
    INSERT INTO documents (collection, key, body, updated_at)
    VALUES ($1, $2, $3::json, now())
    ON CONFLICT (collection, key) DO UPDATE SET body = EXCLUDED.body, updated_at = now()
  `, collection, key, string(doc)); err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, key, err)
	}
	return tx.Commit(ctx)
}

func (s *Store) Delete(ctx context.Context, collection, key string) error {
	_, err := s.DB.Exec(ctx, "DELETE FROM documents WHERE collection = $1 AND key = $2", collection, key)
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.Ping(ctx)
}

// Close is a no-op; the pool is owned by the caller that opened it.
func (s *Store) Close() error {
	return nil
}
