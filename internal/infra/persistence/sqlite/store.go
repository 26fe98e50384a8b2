// Package sqlite persists projection run records in a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"vdypcore/pkg/domain"
)

var _ domain.RunStore = (*Store)(nil)

const schema = `CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	polygon_id TEXT NOT NULL,
	started_at TEXT NOT NULL,
	payload    BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_polygon ON runs (polygon_id, started_at)`

// sortableTime has fixed width so started_at orders lexically.
const sortableTime = "2006-01-02T15:04:05.000000000Z"

// Store keeps one row per run: the indexed keys plus the record as JSON.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database at path.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "vdyp-runs.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// DB exposes the handle for tests.
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
		`INSERT INTO runs (run_id, polygon_id, started_at, payload) VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET polygon_id = excluded.polygon_id, started_at = excluded.started_at, payload = excluded.payload`,
		record.RunID, record.PolygonID, record.StartedAt.UTC().Format(sortableTime), payload)
	if err != nil {
		return fmt.Errorf("upsert run %s: %w", record.RunID, err)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, runID string) (domain.RunRecord, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE run_id = ?`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunRecord{}, fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
	}
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("select run %s: %w", runID, err)
	}
	return decode(payload)
}

func (s *Store) ListRunsByPolygon(ctx context.Context, polygonID string) ([]domain.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM runs WHERE polygon_id = ? ORDER BY started_at, run_id`, polygonID)
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
