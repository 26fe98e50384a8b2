package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"vdypcore/pkg/domain"
)

func newStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(context.Background(), path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	return store
}

func record(runID, polygonID string, started time.Time) domain.RunRecord {
	first := 2000
	return domain.RunRecord{
		RunID:     runID,
		PolygonID: polygonID,
		Projected: true,
		Layers: []domain.LayerSummary{{
			Type:           domain.ProjectionPrimary,
			StartYear:      2000,
			EndYear:        2050,
			FirstYieldYear: &first,
			YieldRows:      51,
		}},
		StartedAt:   started,
		CompletedAt: started.Add(time.Second),
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	store := newStore(t, path)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, r := range []domain.RunRecord{
		record("late", "13919428", t0.Add(time.Minute)),
		record("early", "13919428", t0),
		record("other", "1", t0),
	} {
		if err := store.SaveRun(ctx, r); err != nil {
			t.Fatalf("save %s: %v", r.RunID, err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := newStore(t, path)
	defer func() { _ = reopened.Close() }()
	got, err := reopened.GetRun(ctx, "early")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PolygonID != "13919428" || *got.Layers[0].FirstYieldYear != 2000 || !got.StartedAt.Equal(t0) {
		t.Fatalf("unexpected record %+v", got)
	}
	list, err := reopened.ListRunsByPolygon(ctx, "13919428")
	if err != nil || len(list) != 2 || list[0].RunID != "early" || list[1].RunID != "late" {
		t.Fatalf("unexpected list %+v %v", list, err)
	}
}

func TestStoreUpsertAndMissing(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, filepath.Join(t.TempDir(), "runs.db"))
	defer func() { _ = store.Close() }()
	r := record("r", "p", time.Now())
	if err := store.SaveRun(ctx, r); err != nil {
		t.Fatalf("save: %v", err)
	}
	r.Projected = false
	r.Messages = []string{"DEAD layer not projected"}
	if err := store.SaveRun(ctx, r); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, _ := store.GetRun(ctx, "r")
	if got.Projected || len(got.Messages) != 1 {
		t.Fatalf("upsert did not replace: %+v", got)
	}
	var count int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&count); err != nil || count != 1 {
		t.Fatalf("expected one row, got %d (%v)", count, err)
	}
	if _, err := store.GetRun(ctx, "nope"); !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if err := store.SaveRun(ctx, domain.RunRecord{}); err == nil {
		t.Fatalf("empty run id must be rejected")
	}
	if list, err := store.ListRunsByPolygon(ctx, "none"); err != nil || len(list) != 0 {
		t.Fatalf("expected empty list, got %v %v", list, err)
	}
}

func TestStoreCorruptPayload(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, filepath.Join(t.TempDir(), "runs.db"))
	defer func() { _ = store.Close() }()
	if _, err := store.DB().Exec(`INSERT INTO runs (run_id, polygon_id, started_at, payload) VALUES ('bad', 'p', '', '{')`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.GetRun(ctx, "bad"); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := store.ListRunsByPolygon(ctx, "p"); err == nil {
		t.Fatalf("expected decode error from list")
	}
}
