package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"vdypcore/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	md := map[string]string{"type": "PRIMARY"}
	info, err := s.Put(ctx, "runs/r/p/forward.ctl", bytes.NewReader([]byte("101 2050")), core.PutOptions{ContentType: "text/plain", Metadata: md})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	md["type"] = "changed"
	if info.Size != 8 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "runs/r/p/forward.ctl", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	head, err := s.Head(ctx, "runs/r/p/forward.ctl")
	if err != nil || head.Metadata["type"] != "PRIMARY" {
		t.Fatalf("metadata must be copied on put: %+v %v", head, err)
	}
	head.Metadata["type"] = "mutated"
	_, rc, err := s.Get(ctx, "runs/r/p/forward.ctl")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	if string(body) != "101 2050" {
		t.Fatalf("unexpected body %q", body)
	}
	if again, _ := s.Head(ctx, "runs/r/p/forward.ctl"); again.Metadata["type"] != "PRIMARY" {
		t.Fatalf("head must return a copy")
	}
	if list, _ := s.List(ctx, "runs/"); len(list) != 1 {
		t.Fatalf("unexpected list %+v", list)
	}
	if ok, _ := s.Delete(ctx, "runs/r/p/forward.ctl"); !ok {
		t.Fatalf("expected delete to report existence")
	}
	if _, _, err := s.Get(ctx, "runs/r/p/forward.ctl"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Put(ctx, "../x", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver")
	}
}

func TestStoreConcurrentPuts(t *testing.T) {
	ctx := context.Background()
	s := New()
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Put(ctx, "same", bytes.NewReader([]byte("x")), core.PutOptions{}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	failures := 0
	for err := range errs {
		if !errors.Is(err, core.ErrExists) {
			t.Fatalf("unexpected error %v", err)
		}
		failures++
	}
	if failures != 15 {
		t.Fatalf("expected exactly one winner, got %d failures", failures)
	}
}
