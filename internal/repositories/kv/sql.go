package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/common"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/dbx"
)

const (
	getQuery    = `SELECT value FROM kv WHERE key = ?`
	setQuery    = `INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value`
	deleteQuery = `DELETE FROM kv WHERE key = ?`
	keysQuery   = `SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`
)

type SQLStore struct {
	db    dbx.DBTX
	begin dbx.Beginner // nil inside a transaction
	conn  *sql.DB      // owned connection pool, closed by Close
	style int
}

// NewSQLStore wraps an open database whose schema is already migrated.
// driver selects the placeholder style (DriverSQLite or DriverPostgres).
func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	style := dbx.Question
	if driver == DriverPostgres {
		style = dbx.Dollar
	}
	return &SQLStore{db: db, begin: db, conn: db, style: style}
}

func (s *SQLStore) q(query string) string {
	return dbx.Rebind(s.style, query)
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, s.q(getQuery), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kv[%s]: %w", key, err)
	}
	return value, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if _, err := s.db.ExecContext(ctx, s.q(setQuery), key, value); err != nil {
		return fmt.Errorf("failed to set kv[%s]: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.q(deleteQuery), key); err != nil {
		return fmt.Errorf("failed to delete kv[%s]: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.q(keysQuery), utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list kv keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan kv row: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate kv rows: %w", err)
	}
	return keys, nil
}

// WithTx runs fn inside one database transaction. Nested calls reuse the
// outer transaction.
func (s *SQLStore) WithTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	if s.begin == nil {
		return fn(ctx, s)
	}
	return dbx.WithTx(ctx, s.begin, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, &SQLStore{db: tx, style: s.style})
	})
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
