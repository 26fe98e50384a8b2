package integration

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"vdypcore/internal/blob"
	"vdypcore/internal/growth"
	"vdypcore/internal/observability"
	"vdypcore/internal/projection"
	"vdypcore/internal/runstore"
	"vdypcore/pkg/domain"
)

func smokePolygon() *domain.Polygon {
	return &domain.Polygon{
		ID:            "13919428",
		FeatureID:     13919428,
		MapSheet:      "092L024",
		BECZone:       "CWH",
		ReferenceYear: 2013,
		Standard:      domain.StandardVRI,
		Layers: []domain.Layer{{
			Type:         domain.ProjectionPrimary,
			CrownClosure: 55,
			Species: []domain.Species{
				{Genus: "FD", Percent: 60, SiteIndex: 28, TotalAge: 60, Height: 26},
				{Genus: "HW", Percent: 40, SiteIndex: 24, TotalAge: 55, Height: 21},
			},
		}},
	}
}

// TestIntegrationSmoke projects one polygon against every in-process run
// store and archive backend and reads the results back.
func TestIntegrationSmoke(t *testing.T) {
	ctx := context.Background()

	storeVariants := []struct {
		name string
		cfg  func(t *testing.T) runstore.Config
	}{
		{
			name: "memory-runs",
			cfg:  func(*testing.T) runstore.Config { return runstore.Config{Driver: runstore.DriverMemory} },
		},
		{
			name: "sqlite-runs",
			cfg: func(t *testing.T) runstore.Config {
				return runstore.Config{Driver: runstore.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "runs.db")}
			},
		},
	}
	blobVariants := []struct {
		name string
		cfg  func(t *testing.T) blob.Config
	}{
		{
			name: "memory-archive",
			cfg:  func(*testing.T) blob.Config { return blob.Config{Driver: blob.DriverMemory} },
		},
		{
			name: "filesystem-archive",
			cfg: func(t *testing.T) blob.Config {
				return blob.Config{Driver: blob.DriverFilesystem, FSRoot: filepath.Join(t.TempDir(), "archive")}
			},
		},
	}

	for _, sv := range storeVariants {
		for _, bv := range blobVariants {
			t.Run(sv.name+"/"+bv.name, func(t *testing.T) {
				runs, err := runstore.Open(ctx, sv.cfg(t))
				if err != nil {
					t.Fatalf("open run store: %v", err)
				}
				defer func() { _ = runs.Close() }()
				archive, err := blob.Open(ctx, bv.cfg(t))
				if err != nil {
					t.Fatalf("open archive: %v", err)
				}
				metrics := observability.NewExpvarMetricsRecorder("")
				var traces bytes.Buffer
				tracer := observability.NewJSONTracer(&traces)

				pc, err := projection.NewContext(smokePolygon(),
					projection.Params{StartYear: 2000, EndYear: 2050, Forward: true, WorkRoot: t.TempDir()},
					projection.NewExecRunner(growth.NewEngine()),
					projection.WithArchive(archive),
					projection.WithRunStore(runs),
					projection.WithMetricsRecorder(metrics),
					projection.WithTracer(tracer))
				if err != nil {
					t.Fatalf("new context: %v", err)
				}
				res, err := pc.Run(ctx)
				if err != nil {
					t.Fatalf("run: %v", err)
				}
				if err := pc.Close(); err != nil {
					t.Fatalf("close: %v", err)
				}

				rec, err := runs.GetRun(ctx, res.RunID)
				if err != nil {
					t.Fatalf("get run: %v", err)
				}
				if !rec.Projected || rec.PolygonID != "13919428" || len(rec.Layers) != 1 {
					t.Fatalf("unexpected record %+v", rec)
				}
				if len(rec.ArtifactKeys) == 0 {
					t.Fatalf("expected archived artifacts")
				}
				for _, key := range rec.ArtifactKeys {
					_, rc, err := archive.Get(ctx, key)
					if err != nil {
						t.Fatalf("get %s: %v", key, err)
					}
					data, err := io.ReadAll(rc)
					_ = rc.Close()
					if err != nil || len(data) == 0 {
						t.Fatalf("read %s: %v (%d bytes)", key, err, len(data))
					}
					if strings.HasSuffix(key, "yield.json") && !bytes.Contains(data, []byte(`"year": 2050`)) {
						t.Fatalf("yield artifact %s lacks the final year", key)
					}
				}
				listed, err := archive.List(ctx, "runs/"+res.RunID+"/")
				if err != nil {
					t.Fatalf("list archive: %v", err)
				}
				if len(listed) != len(rec.ArtifactKeys) {
					t.Fatalf("archive lists %d objects, record names %d", len(listed), len(rec.ArtifactKeys))
				}

				snapshot := metrics.Snapshot()
				for _, op := range []string{observability.OpVriStart, observability.OpAdjust, observability.OpForward, observability.OpPolygonProjection} {
					if snapshot.Results[op]["success"] != 1 {
						t.Fatalf("expected one successful %s, got %+v", op, snapshot.Results)
					}
				}
				var foundSpan bool
				for _, entry := range tracer.Entries() {
					if entry.Operation == observability.OpPolygonProjection && entry.Status == "success" {
						foundSpan = true
					}
				}
				if !foundSpan || traces.Len() == 0 {
					t.Fatalf("expected polygon span, entries=%+v", tracer.Entries())
				}
			})
		}
	}
}
