package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"formcraft/internal/storage"
)

// SQLBlobStore keeps blobs in the _blobs table.
type SQLBlobStore struct {
	store *Store
}

func NewSQLBlobStore(s *Store) *SQLBlobStore {
	return &SQLBlobStore{store: s}
}

// Store returns the underlying connection.
func (b *SQLBlobStore) Store() *Store {
	return b.store
}

func (b *SQLBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	d := b.store.Dialect
	q := fmt.Sprintf("SELECT value FROM _blobs WHERE key = %s", d.Placeholder(1))

	var value string
	err := b.store.DB.QueryRowContext(ctx, q, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blob %s: %w", key, err)
	}
	return []byte(value), nil
}

func (b *SQLBlobStore) Put(ctx context.Context, key string, value []byte) error {
	if _, err := Exec(ctx, b.store.DB, upsertBlobSQL(b.store.Dialect), key, string(value)); err != nil {
		return fmt.Errorf("put blob %s: %w", key, MapError(b.store.Dialect, err))
	}
	return nil
}

func (b *SQLBlobStore) Delete(ctx context.Context, key string) error {
	q := fmt.Sprintf("DELETE FROM _blobs WHERE key = %s", b.store.Dialect.Placeholder(1))
	if _, err := Exec(ctx, b.store.DB, q, key); err != nil {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	return nil
}
