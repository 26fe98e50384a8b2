package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"vdypcore/pkg/domain"
)

func sampleRecord(runID string, started time.Time) domain.RunRecord {
	first := 2013
	return domain.RunRecord{
		RunID:     runID,
		PolygonID: "13919428",
		FeatureID: 13919428,
		Projected: true,
		Layers: []domain.LayerSummary{{
			Type:           domain.ProjectionPrimary,
			GrowthModel:    domain.GrowthModelVRI,
			Stages:         []domain.StageSummary{{Stage: domain.StageInitial, Status: domain.StageSucceeded, Component: domain.ComponentVriStart}},
			FirstYieldYear: &first,
			YieldRows:      51,
		}},
		Messages:  []string{"ok"},
		StartedAt: started,
	}
}

func TestStoreSaveGetList(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := sampleRecord("b", t0.Add(time.Hour))
	if err := s.SaveRun(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	*rec.Layers[0].FirstYieldYear = 1999
	rec.Messages[0] = "mutated"
	got, err := s.GetRun(ctx, "b")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if *got.Layers[0].FirstYieldYear != 2013 || got.Messages[0] != "ok" {
		t.Fatalf("store must keep its own copy: %+v", got)
	}
	if err := s.SaveRun(ctx, sampleRecord("a", t0)); err != nil {
		t.Fatalf("save: %v", err)
	}
	other := sampleRecord("c", t0)
	other.PolygonID = "other"
	_ = s.SaveRun(ctx, other)
	list, err := s.ListRunsByPolygon(ctx, "13919428")
	if err != nil || len(list) != 2 || list[0].RunID != "a" || list[1].RunID != "b" {
		t.Fatalf("unexpected list %+v %v", list, err)
	}
	if _, err := s.GetRun(ctx, "missing"); !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if err := s.SaveRun(ctx, domain.RunRecord{}); err == nil {
		t.Fatalf("empty run id must be rejected")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestSaveRunReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	rec := sampleRecord("r", time.Now())
	_ = s.SaveRun(ctx, rec)
	rec.Projected = false
	_ = s.SaveRun(ctx, rec)
	got, _ := s.GetRun(ctx, "r")
	if got.Projected {
		t.Fatalf("second save should replace the record")
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := s.SaveRun(cancelled, rec); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
