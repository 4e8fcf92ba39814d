package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/alumni-mentorship-api/pkg/config"
)

// NewPostgres returns a configured PostgreSQL client.
func NewPostgres(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema applies the idempotent mentorship schema.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS alumni (
    id TEXT PRIMARY KEY,
    full_name TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    graduation_year INTEGER NOT NULL DEFAULT 0,
    degree TEXT NOT NULL DEFAULT '',
    current_company TEXT NOT NULL DEFAULT '',
    industry TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_alumni_full_name ON alumni (LOWER(full_name));

CREATE TABLE IF NOT EXISTS mentor_profiles (
    alumni_id TEXT PRIMARY KEY,
    specializations TEXT[] NOT NULL DEFAULT '{}',
    industries TEXT[] NOT NULL DEFAULT '{}',
    years_of_experience INTEGER NOT NULL DEFAULT 0 CHECK (years_of_experience >= 0),
    max_mentees INTEGER NOT NULL DEFAULT 0 CHECK (max_mentees >= 0),
    current_mentees INTEGER NOT NULL DEFAULT 0 CHECK (current_mentees >= 0),
    availability TEXT NOT NULL DEFAULT 'Available',
    mentorship_type TEXT NOT NULL DEFAULT 'free',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS mentee_requests (
    id TEXT PRIMARY KEY,
    alumni_id TEXT NOT NULL,
    requested_specializations TEXT[] NOT NULL,
    career_goals TEXT NOT NULL DEFAULT '',
    current_situation TEXT NOT NULL DEFAULT '',
    preferred_mentor_industries TEXT[] NOT NULL DEFAULT '{}',
    time_commitment TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_mentee_requests_status ON mentee_requests (status);

CREATE TABLE IF NOT EXISTS mentorship_connections (
    id TEXT PRIMARY KEY,
    mentor_id TEXT NOT NULL,
    mentee_id TEXT NOT NULL,
    request_id TEXT NULL REFERENCES mentee_requests (id) ON DELETE SET NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    start_date TIMESTAMPTZ NOT NULL,
    end_date TIMESTAMPTZ NOT NULL CHECK (end_date >= start_date),
    notes TEXT NOT NULL DEFAULT '',
    idempotency_key TEXT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_connections_status ON mentorship_connections (status);
CREATE INDEX IF NOT EXISTS idx_connections_mentor ON mentorship_connections (mentor_id);
CREATE INDEX IF NOT EXISTS idx_connections_mentee ON mentorship_connections (mentee_id);
`
