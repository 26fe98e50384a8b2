// Package postgres persists projection run records in Postgres through the
// pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"vdypcore/pkg/domain"
)

var _ domain.RunStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/vdyp?sslmode=disable"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS projection_runs (
		run_id     TEXT PRIMARY KEY,
		polygon_id TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		payload    JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS projection_runs_polygon ON projection_runs (polygon_id, started_at)`,
}

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store keeps one row per run with the record as JSONB.
type Store struct {
	db *sql.DB
}

// NewStore connects to dsn (defaultDSN when empty) and ensures the schema.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// DB exposes the handle for integration hooks.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) SaveRun(ctx context.Context, record domain.RunRecord) error {
	if record.RunID == "" {
		return fmt.Errorf("save run: empty run id")
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", record.RunID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projection_runs (run_id, polygon_id, started_at, payload) VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id) DO UPDATE SET polygon_id = EXCLUDED.polygon_id, started_at = EXCLUDED.started_at, payload = EXCLUDED.payload`,
		record.RunID, record.PolygonID, record.StartedAt.UTC(), payload)
	if err != nil {
		return fmt.Errorf("upsert run %s: %w", record.RunID, err)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, runID string) (domain.RunRecord, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM projection_runs WHERE run_id = $1`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunRecord{}, fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
	}
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("select run %s: %w", runID, err)
	}
	return decode(payload)
}

func (s *Store) ListRunsByPolygon(ctx context.Context, polygonID string) ([]domain.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM projection_runs WHERE polygon_id = $1 ORDER BY started_at, run_id`, polygonID)
	if err != nil {
		return nil, fmt.Errorf("select runs of %s: %w", polygonID, err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.RunRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		r, err := decode(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }

func decode(payload []byte) (domain.RunRecord, error) {
	var r domain.RunRecord
	if err := json.Unmarshal(payload, &r); err != nil {
		return domain.RunRecord{}, fmt.Errorf("decode run: %w", err)
	}
	return r, nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
