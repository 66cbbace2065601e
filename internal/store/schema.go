package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the tables if needed. Keeping the migration in
// code means a fresh database needs no tooling beyond the binary itself.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL,
	police_station TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS applications (
	id UUID PRIMARY KEY,
	sr_no TEXT NOT NULL UNIQUE,
	dairy_no TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	contact TEXT NOT NULL DEFAULT '',
	marked_to TEXT NOT NULL DEFAULT '',
	date DATE,
	marked_by TEXT NOT NULL DEFAULT '',
	timeline TEXT NOT NULL DEFAULT '',
	police_station TEXT NOT NULL DEFAULT '',
	division TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'PENDING',
	days INTEGER,
	feedback TEXT NOT NULL DEFAULT 'PENDING',
	remarks TEXT NOT NULL DEFAULT '',
	dairy_ps TEXT NOT NULL DEFAULT '',
	created_by UUID REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_applications_police_station ON applications(police_station);
CREATE INDEX IF NOT EXISTS idx_applications_status ON applications(status);
CREATE INDEX IF NOT EXISTS idx_applications_category ON applications(category);

CREATE TABLE IF NOT EXISTS sessions (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	access_hash TEXT NOT NULL UNIQUE,
	refresh_hash TEXT NOT NULL UNIQUE,
	access_expires_at TIMESTAMPTZ NOT NULL,
	refresh_expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
