package runstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"vdypcore/internal/infra/persistence/postgres"
	"vdypcore/internal/infra/persistence/postgres/testutil"
	"vdypcore/pkg/domain"
)

func TestParseDriver(t *testing.T) {
	for in, want := range map[string]Driver{"": DriverNone, "NONE": DriverNone, "memory": DriverMemory, " sqlite": DriverSQLite, "postgres": DriverPostgres} {
		got, err := ParseDriver(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %q err=%v", in, got, err)
		}
	}
	if _, err := ParseDriver("mysql"); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()
	if s, err := Open(ctx, Config{}); err != nil || s != nil {
		t.Fatalf("storage should be disabled by default, got %v %v", s, err)
	}
	db, _ := testutil.NewStubDB()
	restore := postgres.OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()

	for _, cfg := range []Config{
		{Driver: DriverMemory},
		{Driver: DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "runs.db")},
		{Driver: DriverPostgres},
	} {
		t.Run(string(cfg.Driver), func(t *testing.T) {
			store, err := Open(ctx, cfg)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer func() { _ = store.Close() }()
			rec := domain.RunRecord{RunID: "r1", PolygonID: "13919428", StartedAt: time.Now().UTC()}
			if err := store.SaveRun(ctx, rec); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := store.GetRun(ctx, "r1")
			if err != nil || got.PolygonID != "13919428" {
				t.Fatalf("get: %+v %v", got, err)
			}
		})
	}
	if _, err := Open(ctx, Config{Driver: "oracle"}); err == nil {
		t.Fatalf("unknown driver must fail")
	}
}
