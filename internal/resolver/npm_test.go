package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/licensescan/internal/model"
)

// writeManifest writes a package.json built from fields into dir.
func writeManifest(t *testing.T, dir string, fields map[string]any) {
	t.Helper()

	if err := os.MkdirAll(dir, 0750); err != nil {
		t.Fatalf("failed to create %s: %v", dir, err)
	}
	data, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), data, 0600); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
}

// setupProject creates a small installed npm project:
//
//	app (deps: direct-a, direct-b; devDeps: dev-c; optional: missing-opt)
//	├─ node_modules/direct-a (MIT, deps: nested-d)
//	├─ node_modules/direct-b (UNLICENSED)
//	├─ node_modules/dev-c    (no license, repository acme/dev-c)
//	├─ node_modules/nested-d (ISC, deps: deep-e)
//	└─ node_modules/direct-a/node_modules/deep-e (Apache-2.0)
func setupProject(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	nm := filepath.Join(root, nodeModulesDir)

	writeManifest(t, root, map[string]any{
		"name":                 "app",
		"version":              "0.0.1",
		"license":              "MIT",
		"dependencies":         map[string]string{"direct-a": "^1.0.0", "direct-b": "^2.0.0"},
		"devDependencies":      map[string]string{"dev-c": "^3.0.0"},
		"optionalDependencies": map[string]string{"missing-opt": "^1.0.0"},
	})
	writeManifest(t, filepath.Join(nm, "direct-a"), map[string]any{
		"name":         "direct-a",
		"version":      "1.0.0",
		"license":      "MIT",
		"repository":   "git+https://github.com/acme/direct-a.git",
		"dependencies": map[string]string{"nested-d": "^1.0.0", "deep-e": "^1.0.0"},
	})
	writeManifest(t, filepath.Join(nm, "direct-b"), map[string]any{
		"name":    "direct-b",
		"version": "2.0.0",
		"license": "UNLICENSED",
	})
	writeManifest(t, filepath.Join(nm, "dev-c"), map[string]any{
		"name":       "dev-c",
		"version":    "3.0.0",
		"repository": map[string]string{"type": "git", "url": "acme/dev-c"},
	})
	writeManifest(t, filepath.Join(nm, "nested-d"), map[string]any{
		"name":    "nested-d",
		"version": "1.1.0",
		"license": "ISC",
	})
	writeManifest(t, filepath.Join(nm, "direct-a", nodeModulesDir, "deep-e"), map[string]any{
		"name":    "deep-e",
		"version": "1.0.0",
		"license": map[string]string{"type": "Apache-2.0"},
	})

	return root
}

// newTestResolver creates a resolver without diagnostic output.
func newTestResolver(t *testing.T, opts ...Option) *NPMResolver {
	t.Helper()

	r, err := NewNPMResolver(append([]Option{WithDiagnosticWriter(nil)}, opts...)...)
	if err != nil {
		t.Fatalf("failed to create resolver: %v", err)
	}
	return r
}

// keys returns the sorted keys of a result.
func keys(results map[string]model.PackageLicenseInfo) []string {
	return model.SortedNames(results)
}

func TestNPMResolverDirectDependencies(t *testing.T) {
	t.Parallel()

	root := setupProject(t)
	r := newTestResolver(t)

	results, err := r.Resolve(context.Background(), Options{
		Start:                  []string{root},
		Dependencies:           true,
		OnlyDirectDependencies: true,
		NoColor:                true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"dev-c@3.0.0", "direct-a@1.0.0", "direct-b@2.0.0"}
	got := keys(results)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}

	t.Run("license values", func(t *testing.T) {
		t.Parallel()
		if results["direct-a@1.0.0"].Licenses != "MIT" {
			t.Errorf("unexpected direct-a license %q", results["direct-a@1.0.0"].Licenses)
		}
		if results["direct-b@2.0.0"].Licenses != model.LicenseUnlicensed {
			t.Errorf("unexpected direct-b license %q", results["direct-b@2.0.0"].Licenses)
		}
		if results["dev-c@3.0.0"].Licenses != model.LicenseUnknown {
			t.Errorf("unexpected dev-c license %q", results["dev-c@3.0.0"].Licenses)
		}
	})

	t.Run("repositories are normalised", func(t *testing.T) {
		t.Parallel()
		if got := results["direct-a@1.0.0"].Repository; got != "https://github.com/acme/direct-a" {
			t.Errorf("unexpected direct-a repository %q", got)
		}
		if got := results["dev-c@3.0.0"].Repository; got != "https://github.com/acme/dev-c" {
			t.Errorf("unexpected dev-c repository %q", got)
		}
	})

	t.Run("project itself is not listed", func(t *testing.T) {
		t.Parallel()
		if _, ok := results["app@0.0.1"]; ok {
			t.Error("project manifest must not be listed in dependency mode")
		}
	})
}

func TestNPMResolverIndirectDependencies(t *testing.T) {
	t.Parallel()

	root := setupProject(t)
	r := newTestResolver(t)

	results, err := r.Resolve(context.Background(), Options{
		Start:                  []string{root},
		Dependencies:           true,
		OnlyDirectDependencies: false,
		NoColor:                true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"deep-e@1.0.0", "dev-c@3.0.0", "direct-a@1.0.0", "direct-b@2.0.0", "nested-d@1.1.0"}
	got := keys(results)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}

	// deep-e is installed below direct-a, not hoisted.
	wantDir := filepath.Join(root, nodeModulesDir, "direct-a", nodeModulesDir, "deep-e")
	if results["deep-e@1.0.0"].Path != wantDir {
		t.Errorf("expected deep-e at %s, got %s", wantDir, results["deep-e@1.0.0"].Path)
	}
	if results["deep-e@1.0.0"].Licenses != "Apache-2.0" {
		t.Errorf("unexpected deep-e license %q", results["deep-e@1.0.0"].Licenses)
	}
}

func TestNPMResolverAllManifests(t *testing.T) {
	t.Parallel()

	root := setupProject(t)
	// A nested manifest without a name describes no package.
	writeManifest(t, filepath.Join(root, nodeModulesDir, "direct-a", "esm"), map[string]any{"type": "module"})

	r := newTestResolver(t)
	results, err := r.Resolve(context.Background(), Options{
		Start:        []string{root},
		Dependencies: false,
		NoColor:      true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"app@0.0.1", "deep-e@1.0.0", "dev-c@3.0.0", "direct-a@1.0.0", "direct-b@2.0.0", "nested-d@1.1.0"}
	got := keys(results)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNPMResolverExclude(t *testing.T) {
	t.Parallel()

	root := setupProject(t)
	r := newTestResolver(t)

	results, err := r.Resolve(context.Background(), Options{
		Start:                  []string{root},
		Exclude:                []string{filepath.Join(root, nodeModulesDir, "direct-b")},
		Dependencies:           true,
		OnlyDirectDependencies: true,
		NoColor:                true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := results["direct-b@2.0.0"]; ok {
		t.Error("expected direct-b to be excluded")
	}
	if _, ok := results["direct-a@1.0.0"]; !ok {
		t.Error("expected direct-a to remain")
	}
}

func TestNPMResolverMultipleStartPaths(t *testing.T) {
	t.Parallel()

	first := setupProject(t)
	second := t.TempDir()
	writeManifest(t, second, map[string]any{
		"name":         "other",
		"dependencies": map[string]string{"direct-a": "^9.0.0", "solo": "^1.0.0"},
	})
	writeManifest(t, filepath.Join(second, nodeModulesDir, "direct-a"), map[string]any{
		"name":    "direct-a",
		"version": "1.0.0",
		"license": "GPL-3.0",
	})
	writeManifest(t, filepath.Join(second, nodeModulesDir, "solo"), map[string]any{
		"name":    "solo",
		"version": "1.0.0",
		"license": "BSD-2-Clause",
	})

	r := newTestResolver(t, WithConcurrency(2))
	results, err := r.Resolve(context.Background(), Options{
		Start:                  []string{first, second},
		Dependencies:           true,
		OnlyDirectDependencies: true,
		NoColor:                true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := results["solo@1.0.0"]; !ok {
		t.Error("expected package from second path")
	}
	if got := results["direct-a@1.0.0"].Licenses; got != "MIT" {
		t.Errorf("expected first start path to win for duplicate key, got %q", got)
	}
}

func TestNPMResolverErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing start path", func(t *testing.T) {
		t.Parallel()

		r := newTestResolver(t)
		missing := filepath.Join(t.TempDir(), "missing")
		results, err := r.Resolve(context.Background(), Options{Start: []string{missing}, Dependencies: true})
		if err == nil {
			t.Fatal("expected error")
		}
		if results != nil {
			t.Error("expected no partial results")
		}
		if !errors.Is(err, ErrResolve) {
			t.Errorf("expected ErrResolve, got %v", err)
		}
		var rerr *Error
		if !errors.As(err, &rerr) || rerr.Path != missing {
			t.Errorf("expected *Error for %s, got %v", missing, err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected cause to be os.ErrNotExist, got %v", err)
		}
	})

	t.Run("no start path", func(t *testing.T) {
		t.Parallel()

		r := newTestResolver(t)
		_, err := r.Resolve(context.Background(), Options{})
		if !errors.Is(err, ErrNoStartPath) {
			t.Errorf("expected ErrNoStartPath, got %v", err)
		}
	})

	t.Run("malformed project manifest", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		if err := os.WriteFile(filepath.Join(root, manifestFile), []byte("{not json"), 0600); err != nil {
			t.Fatal(err)
		}

		r := newTestResolver(t)
		_, err := r.Resolve(context.Background(), Options{Start: []string{root}, Dependencies: true})
		if !errors.Is(err, ErrResolve) {
			t.Errorf("expected ErrResolve, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		root := setupProject(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		r := newTestResolver(t)
		_, err := r.Resolve(ctx, Options{Start: []string{root}, Dependencies: true})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestNPMResolverStartAtManifestFile(t *testing.T) {
	t.Parallel()

	root := setupProject(t)
	r := newTestResolver(t)

	results, err := r.Resolve(context.Background(), Options{
		Start:                  []string{filepath.Join(root, manifestFile)},
		Dependencies:           true,
		OnlyDirectDependencies: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 packages, got %v", keys(results))
	}
}

func TestNPMResolverDiagnostics(t *testing.T) {
	t.Parallel()

	root := setupProject(t)

	var buf bytes.Buffer
	r, err := NewNPMResolver(WithDiagnosticWriter(&buf))
	if err != nil {
		t.Fatalf("failed to create resolver: %v", err)
	}

	_, err = r.Resolve(context.Background(), Options{
		Start:                  []string{root},
		Dependencies:           true,
		OnlyDirectDependencies: true,
		NoColor:                true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"├─ dev-c@3.0.0",
		"└─ direct-b@2.0.0",
		"licenses: UNLICENSED",
		"repository: https://github.com/acme/direct-a",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected diagnostics to contain %q, got:\n%s", want, output)
		}
	}
	if strings.Contains(output, "\x1b[") {
		t.Error("expected no ANSI escapes with NoColor")
	}
}

func TestNPMResolverCachesManifests(t *testing.T) {
	t.Parallel()

	root := setupProject(t)
	r := newTestResolver(t, WithDiagnosticWriter(io.Discard))

	opts := Options{Start: []string{root}, Dependencies: true, NoColor: true}
	if _, err := r.Resolve(context.Background(), opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.cache.Len() == 0 {
		t.Fatal("expected manifests to be cached")
	}

	// A cached manifest is reused even if the file changes on disk.
	writeManifest(t, filepath.Join(root, nodeModulesDir, "direct-b"), map[string]any{
		"name":    "direct-b",
		"version": "2.0.0",
		"license": "MIT",
	})
	results, err := r.Resolve(context.Background(), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := results["direct-b@2.0.0"].Licenses; got != model.LicenseUnlicensed {
		t.Errorf("expected cached license UNLICENSED, got %q", got)
	}
}
