package blob

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestParseDriver(t *testing.T) {
	cases := []struct {
		in   string
		want Driver
		ok   bool
	}{
		{"", DriverNone, true},
		{"none", DriverNone, true},
		{" FS ", DriverFilesystem, true},
		{"memory", DriverMemory, true},
		{"s3", DriverS3, true},
		{"gcs", "", false},
	}
	for _, tc := range cases {
		got, err := ParseDriver(tc.in)
		if (err == nil) != tc.ok || got != tc.want {
			t.Fatalf("%q: got %q err=%v", tc.in, got, err)
		}
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	if s, err := Open(ctx, Config{}); err != nil || s != nil {
		t.Fatalf("archiving should be disabled by default, got %v %v", s, err)
	}
	mem, err := Open(ctx, Config{Driver: DriverMemory})
	if err != nil || mem.Driver() != DriverMemory {
		t.Fatalf("memory: %v %v", mem, err)
	}
	root := filepath.Join(t.TempDir(), "archive")
	fsStore, err := Open(ctx, Config{Driver: DriverFilesystem, FSRoot: root})
	if err != nil || fsStore.Driver() != DriverFilesystem {
		t.Fatalf("fs: %v", err)
	}
	if _, err := fsStore.Put(ctx, "runs/x/y", bytes.NewReader([]byte("z")), PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := fsStore.Put(ctx, "runs/x/y", bytes.NewReader([]byte("z")), PutOptions{}); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists through the facade, got %v", err)
	}
	if _, err := Open(ctx, Config{Driver: DriverS3}); err == nil {
		t.Fatalf("s3 without a bucket must fail")
	}
	if _, err := Open(ctx, Config{Driver: "tape"}); err == nil {
		t.Fatalf("unknown driver must fail")
	}
}
