package repository

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS live_signals (
		id              BIGSERIAL PRIMARY KEY,
		symbol          TEXT NOT NULL,
		signal_type     TEXT NOT NULL,
		source          TEXT NOT NULL DEFAULT '',
		signal_strength DOUBLE PRECISION NOT NULL,
		timestamp       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_live_signals_symbol_ts ON live_signals (symbol, timestamp DESC)`,
	`CREATE TABLE IF NOT EXISTS signal_registry (
		key            TEXT PRIMARY KEY,
		category       TEXT NOT NULL DEFAULT '',
		default_weight DOUBLE PRECISION NOT NULL DEFAULT 1,
		min_weight     DOUBLE PRECISION NOT NULL DEFAULT 0,
		max_weight     DOUBLE PRECISION NOT NULL DEFAULT 3,
		direction_hint TEXT NOT NULL DEFAULT 'symmetric',
		is_enabled     BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS strategies (
		id               UUID PRIMARY KEY,
		name             TEXT NOT NULL DEFAULT '',
		execution_target TEXT NOT NULL DEFAULT 'MOCK'
	)`,
	`CREATE TABLE IF NOT EXISTS strategy_signal_weights (
		strategy_id UUID NOT NULL,
		signal_key  TEXT NOT NULL,
		weight      DOUBLE PRECISION,
		is_enabled  BOOLEAN NOT NULL DEFAULT TRUE,
		PRIMARY KEY (strategy_id, signal_key)
	)`,
	`CREATE TABLE IF NOT EXISTS price_snapshots (
		id        BIGSERIAL PRIMARY KEY,
		symbol    TEXT NOT NULL,
		price     DOUBLE PRECISION NOT NULL,
		bid       DOUBLE PRECISION,
		ask       DOUBLE PRECISION,
		volume    DOUBLE PRECISION,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_price_snapshots_symbol_ts ON price_snapshots (symbol, timestamp DESC)`,
	`CREATE TABLE IF NOT EXISTS desk_operators (
		id            BIGSERIAL PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		display_name  TEXT NOT NULL DEFAULT '',
		fingerprint   TEXT NOT NULL UNIQUE,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		last_login_at TIMESTAMPTZ
	)`,
}

// RunMigrations creates the tables this service reads and writes. It is
// idempotent and meant for local and test databases.
func RunMigrations(ctx context.Context, pool PgxPool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
