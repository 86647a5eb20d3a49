// Package store persists products, observations, and change events in
// PostgreSQL.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/horecawatch/engine/internal/domain"
)

type Store struct {
	db *sqlx.DB
}

// NewStore connects to PostgreSQL and verifies the connection.
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// storageErr marks a database failure so callers can match it with
// errors.Is(err, domain.ErrStorageUnavailable).
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStorageUnavailable, err)
}

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id              BIGSERIAL PRIMARY KEY,
	normalized_name TEXT NOT NULL UNIQUE,
	brand           TEXT NOT NULL DEFAULT '',
	category        TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS observations (
	id            BIGSERIAL PRIMARY KEY,
	site          TEXT NOT NULL,
	product_id    BIGINT NOT NULL REFERENCES products(id),
	original_name TEXT NOT NULL DEFAULT '',
	price         NUMERIC(12,2) NOT NULL,
	currency      TEXT NOT NULL DEFAULT 'TRY',
	stock_status  TEXT NOT NULL DEFAULT '',
	url           TEXT,
	observed_at   TIMESTAMPTZ NOT NULL,
	observed_on   DATE NOT NULL,
	UNIQUE (site, product_id, observed_on)
);

CREATE INDEX IF NOT EXISTS idx_observations_product_site
	ON observations (product_id, site, observed_at DESC);
CREATE INDEX IF NOT EXISTS idx_observations_site_url
	ON observations (site, observed_at) WHERE url IS NOT NULL;

CREATE TABLE IF NOT EXISTS price_changes (
	id             BIGSERIAL PRIMARY KEY,
	product_id     BIGINT NOT NULL REFERENCES products(id),
	site           TEXT NOT NULL,
	old_price      NUMERIC(12,2) NOT NULL,
	new_price      NUMERIC(12,2) NOT NULL,
	change_percent NUMERIC(8,2) NOT NULL,
	detected_at    TIMESTAMPTZ NOT NULL,
	notified       BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_price_changes_detected_at
	ON price_changes (detected_at);

CREATE TABLE IF NOT EXISTS stock_changes (
	id              BIGSERIAL PRIMARY KEY,
	product_id      BIGINT NOT NULL REFERENCES products(id),
	site            TEXT NOT NULL,
	previous_status TEXT NOT NULL,
	new_status      TEXT NOT NULL,
	change_type     TEXT NOT NULL,
	detected_at     TIMESTAMPTZ NOT NULL,
	notified        BOOLEAN NOT NULL DEFAULT FALSE
);
`

// EnsureSchema creates the tables and indexes when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return storageErr("ensuring schema", err)
	}
	return nil
}
