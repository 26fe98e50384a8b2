package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vdypcore/internal/blob/core"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	store.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return store
}

func TestStoreArchivesRunArtifacts(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	key := "runs/r1/13919428/primary/yield.json"
	info, err := store.Put(ctx, key, bytes.NewReader([]byte(`{"rows":[]}`)), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"polygon": "13919428"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != key || info.Size != 11 || info.ETag == "" || !info.LastModified.Equal(store.now()) {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, key, bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	head, err := store.Head(ctx, key)
	if err != nil || head.Metadata["polygon"] != "13919428" || head.ContentType != "application/json" {
		t.Fatalf("head: %+v %v", head, err)
	}
	got, rc, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	if err := rc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if string(body) != `{"rows":[]}` || got.ETag != info.ETag {
		t.Fatalf("unexpected object %q %+v", body, got)
	}
	if ok, err := store.Delete(ctx, key); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, key); err != nil || ok {
		t.Fatalf("second delete should report absence, got %v %v", ok, err)
	}
	if _, err := store.Head(ctx, key); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreListIsOrderedAndFiltered(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	for _, key := range []string{"runs/b/x.ctl", "runs/a/y.ctl", "other/z"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte(key)), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	list, err := store.List(ctx, "runs/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "runs/a/y.ctl" || list[1].Key != "runs/b/x.ctl" {
		t.Fatalf("unexpected list %+v", list)
	}
	all, _ := store.List(ctx, "")
	if len(all) != 3 {
		t.Fatalf("expected three objects, got %d", len(all))
	}
}

func TestStoreRejectsBadKeys(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	for _, key := range []string{"", "   ", "../escape", "/abs", "a/../../b", "x.meta"} {
		if _, err := store.Put(ctx, key, bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
			t.Fatalf("%q: expected ErrInvalidKey, got %v", key, err)
		}
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(store.Root()), "escape")); err == nil {
		t.Fatalf("traversal wrote outside the root")
	}
}

func TestStoreCorruptSidecar(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte("v")), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.Root(), "k"+metaSuffix), []byte("{"), 0o600); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, err := store.Head(ctx, "k"); err == nil || errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if _, err := store.List(ctx, ""); err == nil {
		t.Fatalf("list should surface the decode error")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestStorePutFailuresLeaveNothingBehind(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "dir/k", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
	entries, _ := os.ReadDir(filepath.Join(store.Root(), "dir"))
	if len(entries) != 0 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := store.Put(cancelled, "k", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if _, err := New(" "); err == nil {
		t.Fatalf("expected error for empty root")
	}
}
