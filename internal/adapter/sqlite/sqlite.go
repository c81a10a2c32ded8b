// Package sqlite implements the local key-value store in an embedded SQLite
// file. The state tree is a single JSON blob, so one table is enough.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"healthlog/internal/domain"
)

// KV is a domain.KeyValueStore backed by SQLite.
type KV struct {
	conn *sql.DB
	path string
}

var _ domain.KeyValueStore = (*KV)(nil)

// Open opens (creating if needed) the database file at path. The special
// path ":memory:" opens a private in-memory database.
func Open(path string) (*KV, error) {
	connStr := "file::memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		connStr = fmt.Sprintf("file:%s", path)
	}

	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; an in-memory database also lives only as long as its
	// single connection.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	kv := &KV{conn: conn, path: path}
	if err := kv.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return kv, nil
}

func (kv *KV) migrate(ctx context.Context) error {
	stmts := []string{
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	if kv.path != ":memory:" {
		stmts = append([]string{"PRAGMA journal_mode=WAL;"}, stmts...)
	}
	for _, stmt := range stmts {
		if _, err := kv.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (kv *KV) Close() error {
	return kv.conn.Close()
}

// Get returns the value stored under key, or domain.ErrNotFound.
func (kv *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := kv.conn.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

// Put stores value under key, replacing any previous value.
func (kv *KV) Put(ctx context.Context, key string, value []byte) error {
	_, err := kv.conn.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (kv *KV) Delete(ctx context.Context, key string) error {
	if _, err := kv.conn.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}
