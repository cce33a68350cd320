package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

// SQLiteStore implements Store on top of a SQLite database file.
type SQLiteStore struct {
	db    *sql.DB
	quota int64
}

// OpenSQLite opens (creating if needed) the database at path. The special
// path ":memory:" opens a private in-memory database.
func OpenSQLite(path string, quota int64) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating storage directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &SQLiteStore{db: db, quota: quota}, nil
}

// Read returns the value stored under key.
func (s *SQLiteStore) Read(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read key %q: %w", key, err)
	}

	return value, nil
}

// Write stores value under key subject to the quota.
func (s *SQLiteStore) Write(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		used, err := usage(ctx, tx)
		if err != nil {
			return err
		}

		var oldSize int64
		err = tx.QueryRowContext(ctx,
			`SELECT length(CAST(key AS BLOB)) + length(CAST(value AS BLOB)) FROM kv WHERE key = ?`, key,
		).Scan(&oldSize)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("sizing key %q: %w", key, err)
		}

		if err := checkQuota(used, oldSize, entrySize(key, value), s.quota); err != nil {
			return fmt.Errorf("write %q: %w", key, err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, time.Now().UTC().Unix(),
		)
		if err != nil {
			return fmt.Errorf("write key %q: %w", key, err)
		}
		return nil
	})
}

// Remove deletes key from the store.
func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove key %q: %w", key, err)
	}
	return nil
}

// Keys returns all keys in ascending order.
func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

// Usage returns the bytes in use and the quota.
func (s *SQLiteStore) Usage(ctx context.Context) (int64, int64, error) {
	var used int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		used, err = usage(ctx, tx)
		return err
	})
	return used, s.quota, err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// withTx executes fn within a transaction.
// It handles Begin, Rollback on error, and Commit on success.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func usage(ctx context.Context, tx *sql.Tx) (int64, error) {
	var used sql.NullInt64
	err := tx.QueryRowContext(ctx,
		`SELECT SUM(length(CAST(key AS BLOB)) + length(CAST(value AS BLOB))) FROM kv`,
	).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("computing usage: %w", err)
	}
	return used.Int64, nil
}
