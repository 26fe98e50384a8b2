package blob

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

const modulePath = "vdypcore"

func loadPackages(t *testing.T) []*packages.Package {
	t.Helper()
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, modulePath+"/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	return pkgs
}

func hasPrefixPath(importPath, prefix string) bool {
	return importPath == prefix || strings.HasPrefix(importPath, prefix+"/")
}

func report(t *testing.T, what string, seen map[string]struct{}) {
	t.Helper()
	if len(seen) == 0 {
		return
	}
	violations := make([]string, 0, len(seen))
	for v := range seen {
		violations = append(violations, v)
	}
	sort.Strings(violations)
	for _, v := range violations {
		t.Errorf("forbidden import of %s: %s", what, v)
	}
	t.Fatalf("found %d forbidden imports of %s", len(violations), what)
}

// TestOnlyFacadesImportInfra keeps the infra backends behind the blob and
// runstore packages.
func TestOnlyFacadesImportInfra(t *testing.T) {
	infra := modulePath + "/internal/infra"
	allowed := []string{modulePath + "/internal/blob", modulePath + "/internal/runstore", infra}
	seen := make(map[string]struct{})
	for _, pkg := range loadPackages(t) {
		skip := false
		for _, a := range allowed {
			if hasPrefixPath(pkg.PkgPath, a) {
				skip = true
			}
		}
		if skip {
			continue
		}
		for importPath := range pkg.Imports {
			if hasPrefixPath(importPath, infra) {
				seen[pkg.PkgPath+": "+importPath] = struct{}{}
			}
		}
	}
	report(t, "infra packages", seen)
}

// TestNumericPackagesStayPure keeps the utilization model and the site-index
// solver free of storage and observability code.
func TestNumericPackagesStayPure(t *testing.T) {
	pure := []string{modulePath + "/internal/utilization", modulePath + "/internal/siteindex"}
	forbidden := []string{
		modulePath + "/internal/infra",
		modulePath + "/internal/blob",
		modulePath + "/internal/runstore",
		modulePath + "/internal/observability",
		modulePath + "/internal/projection",
	}
	seen := make(map[string]struct{})
	for _, pkg := range loadPackages(t) {
		isPure := false
		for _, p := range pure {
			if hasPrefixPath(strings.TrimSuffix(pkg.PkgPath, "_test"), p) {
				isPure = true
			}
		}
		if !isPure {
			continue
		}
		for importPath := range pkg.Imports {
			for _, f := range forbidden {
				if hasPrefixPath(importPath, f) {
					seen[pkg.PkgPath+": "+importPath] = struct{}{}
				}
			}
		}
	}
	report(t, "infrastructure from numeric packages", seen)
}
