// Package db provides a pgxpool-based connection pool used to mirror diff
// entries into Postgres for downstream replay.
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/projection-refresher/internal/config"
	"github.com/albapepper/projection-refresher/internal/difflog"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// schema is applied before prepared statements so they can reference it.
const schema = `
CREATE TABLE IF NOT EXISTS diff_entries (
	id          BIGSERIAL PRIMARY KEY,
	finished_at TEXT        NOT NULL,
	season      INTEGER     NOT NULL,
	week        INTEGER     NOT NULL,
	has_changes BOOLEAN     NOT NULL,
	entry       JSONB       NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (finished_at, season, week)
)`

// registerPreparedStatements ensures the mirror table exists and registers
// the statements the mirror uses.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	if _, err := conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	stmts := map[string]string{
		"insert_diff_entry": `INSERT INTO diff_entries (finished_at, season, week, has_changes, entry)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (finished_at, season, week) DO NOTHING`,

		"prune_diff_entries": `DELETE FROM diff_entries
			WHERE id NOT IN (SELECT id FROM diff_entries ORDER BY id DESC LIMIT $1)`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}

// Mirror copies diff entries into Postgres and keeps the table at the same
// cap as the on-disk log.
type Mirror struct {
	pool  *Pool
	limit int
}

// NewMirror creates a mirror over pool holding at most limit rows.
func NewMirror(pool *Pool, limit int) *Mirror {
	return &Mirror{pool: pool, limit: limit}
}

// Record inserts e and prunes the oldest rows beyond the cap. Re-recording
// the same completion is a no-op.
func (m *Mirror) Record(ctx context.Context, e difflog.Entry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode diff entry: %w", err)
	}
	if _, err := m.pool.Exec(ctx, "insert_diff_entry", e.FinishedAt, e.Season, e.Week, e.HasChanges, body); err != nil {
		return fmt.Errorf("insert diff entry: %w", err)
	}
	if m.limit > 0 {
		if _, err := m.pool.Exec(ctx, "prune_diff_entries", m.limit); err != nil {
			return fmt.Errorf("prune diff entries: %w", err)
		}
	}
	return nil
}
