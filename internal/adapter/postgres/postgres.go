// Package postgres owns the hosted database schema and implements the account
// repositories (users and sessions) on database/sql. The per-user health
// tables it creates are read and written by the remote adapter.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql *sql.DB
}

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d := &DB{sql: s}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

var schema = []string{
	"CREATE EXTENSION IF NOT EXISTS pgcrypto;",
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		user_agent TEXT NOT NULL DEFAULT '',
		ip TEXT NOT NULL DEFAULT '',
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);`,
	"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);",
	"CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);",
	`CREATE TABLE IF NOT EXISTS user_settings (
		user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		units TEXT NOT NULL DEFAULT 'kg' CHECK(units IN ('kg','lb')),
		name TEXT NOT NULL DEFAULT '',
		profile_picture TEXT,
		theme JSONB NOT NULL DEFAULT '{}',
		images JSONB NOT NULL DEFAULT '{}',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS weight_logs (
		id BIGSERIAL PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		client_id TEXT NOT NULL,
		weight DOUBLE PRECISION NOT NULL,
		notes TEXT,
		date DATE NOT NULL,
		logged_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(user_id, client_id)
	);`,
	`CREATE TABLE IF NOT EXISTS mood_logs (
		id BIGSERIAL PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		client_id TEXT NOT NULL,
		mood INT NOT NULL CHECK(mood BETWEEN 1 AND 5),
		tags TEXT[] NOT NULL DEFAULT '{}',
		notes TEXT,
		date DATE NOT NULL,
		logged_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(user_id, client_id)
	);`,
	`CREATE TABLE IF NOT EXISTS nutrition_notes (
		id BIGSERIAL PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		client_id TEXT NOT NULL,
		notes TEXT NOT NULL,
		meal_type TEXT CHECK(meal_type IN ('breakfast','lunch','dinner','snack')),
		date DATE NOT NULL,
		logged_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(user_id, client_id)
	);`,
	`CREATE TABLE IF NOT EXISTS health_connections (
		user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		status TEXT NOT NULL DEFAULT 'disconnected' CHECK(status IN ('connected','disconnected')),
		last_sync_at TIMESTAMPTZ,
		permissions JSONB NOT NULL DEFAULT '[]'
	);`,
	"CREATE INDEX IF NOT EXISTS idx_weight_logs_user_date ON weight_logs(user_id, date DESC);",
	"CREATE INDEX IF NOT EXISTS idx_mood_logs_user_date ON mood_logs(user_id, date DESC);",
	"CREATE INDEX IF NOT EXISTS idx_nutrition_notes_user_date ON nutrition_notes(user_id, date DESC);",
}

func (d *DB) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
