package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPredicates(t *testing.T) {
	cases := []struct {
		in              string
		internal, infra bool
	}{
		{"vdypcore/internal/infra/blob/fs", true, true},
		{"vdypcore/internal/infra", true, true},
		{"vdypcore/internal/projection", true, false},
		{"vdypcore/pkg/domain", false, false},
		{"github.com/spf13/cobra", false, false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.internal {
			t.Fatalf("InternalImportForbidden(%q)=%v", c.in, got)
		}
		if got := InfraImportForbidden(c.in); got != c.infra {
			t.Fatalf("InfraImportForbidden(%q)=%v", c.in, got)
		}
	}
	both := AnyOf(InfraImportForbidden, func(p string) bool { return p == "os/exec" })
	if !both("os/exec") || !both("vdypcore/internal/infra/blob/s3") || both("fmt") {
		t.Fatalf("AnyOf combined predicates incorrectly")
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.go":      "package tmp\nimport \"vdypcore/internal/infra/blob/fs\"\nvar _ = fs.New\n",
		"b.go":      "package tmp\nimport (\n\t\"fmt\"\n\t\"vdypcore/internal/infra/persistence/sqlite\"\n)\n",
		"a_test.go": "package tmp\nimport \"vdypcore/internal/infra/blob/s3\"\n",
		"notes.txt": "import \"vdypcore/internal/infra\"",
	}
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.go"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	viols, err := directImportViolations(dir, InfraImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	want := []string{
		"vdypcore/internal/infra/blob/fs (in a.go)",
		"vdypcore/internal/infra/persistence/sqlite (in b.go)",
	}
	if len(viols) != len(want) || viols[0] != want[0] || viols[1] != want[1] {
		t.Fatalf("unexpected violations %v", viols)
	}
	AssertNoDirectImports(t, dir, func(p string) bool { return p == "os/exec" }, "none")
}

func TestDirectImportViolationsReportsParseErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.go"), []byte("package"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := directImportViolations(dir, InfraImportForbidden); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := directImportViolations(filepath.Join(dir, "missing"), InfraImportForbidden); err == nil {
		t.Fatalf("expected read error")
	}
}
