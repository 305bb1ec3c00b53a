package resolver

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/licensescan/internal/model"
)

func TestParseLicense(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		license  string
		licenses string
		want     string
		wantFile string
	}{
		{name: "string license", license: `"MIT"`, want: "MIT"},
		{name: "SPDX expression kept verbatim", license: `"(MIT OR Apache-2.0)"`, want: "(MIT OR Apache-2.0)"},
		{name: "object license", license: `{"type": "ISC", "url": "https://x"}`, want: "ISC"},
		{name: "unlicensed is kept", license: `"UNLICENSED"`, want: model.LicenseUnlicensed},
		{name: "no license is unknown", want: model.LicenseUnknown},
		{name: "empty string is unknown", license: `""`, want: model.LicenseUnknown},
		{name: "see license in", license: `"SEE LICENSE IN EULA.txt"`, want: model.LicenseUnknown, wantFile: "EULA.txt"},
		{name: "legacy licenses single", licenses: `[{"type": "BSD-3-Clause"}]`, want: "BSD-3-Clause"},
		{name: "legacy licenses multiple", licenses: `[{"type": "MIT"}, "GPL-2.0"]`, want: "(MIT OR GPL-2.0)"},
		{name: "legacy licenses as string", licenses: `"WTFPL"`, want: "WTFPL"},
		{name: "license wins over licenses", license: `"MIT"`, licenses: `["GPL-3.0"]`, want: "MIT"},
		{name: "empty licenses array is unknown", licenses: `[]`, want: model.LicenseUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, file := parseLicense(json.RawMessage(tt.license), json.RawMessage(tt.licenses))
			if got != tt.want {
				t.Errorf("expected license %q, got %q", tt.want, got)
			}
			if file != tt.wantFile {
				t.Errorf("expected file %q, got %q", tt.wantFile, file)
			}
		})
	}
}

func TestNormalizeRepository(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"https://github.com/acme/widget", "https://github.com/acme/widget"},
		{"git+https://github.com/acme/widget.git", "https://github.com/acme/widget"},
		{"git://github.com/acme/widget.git", "https://github.com/acme/widget"},
		{"git@github.com:acme/widget.git", "https://github.com/acme/widget"},
		{"ssh://git@github.com/acme/widget.git", "https://github.com/acme/widget"},
		{"github:acme/widget", "https://github.com/acme/widget"},
		{"gitlab:acme/widget", "https://gitlab.com/acme/widget"},
		{"bitbucket:acme/widget", "https://bitbucket.org/acme/widget"},
		{"acme/widget", "https://github.com/acme/widget"},
		{"https://github.com/acme/widget/", "https://github.com/acme/widget"},
		{"https://github.com/acme/widget.git#main", "https://github.com/acme/widget"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := normalizeRepository(tt.in); got != tt.want {
				t.Errorf("normalizeRepository(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseRepository(t *testing.T) {
	t.Parallel()

	t.Run("string form", func(t *testing.T) {
		t.Parallel()
		if got := parseRepository(json.RawMessage(`"acme/widget"`)); got != "https://github.com/acme/widget" {
			t.Errorf("unexpected repository %q", got)
		}
	})

	t.Run("object form", func(t *testing.T) {
		t.Parallel()
		raw := json.RawMessage(`{"type": "git", "url": "git+https://github.com/acme/widget.git"}`)
		if got := parseRepository(raw); got != "https://github.com/acme/widget" {
			t.Errorf("unexpected repository %q", got)
		}
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		if got := parseRepository(nil); got != "" {
			t.Errorf("expected empty repository, got %q", got)
		}
	})
}

func TestCollectDependencies(t *testing.T) {
	t.Parallel()

	deps := collectDependencies(
		map[string]string{"b": "1", "shared": "1"},
		map[string]string{"a": "1"},
		map[string]string{"c": "1", "shared": "1"},
	)

	want := []dependency{
		{name: "a"},
		{name: "b"},
		{name: "c", optional: true},
		{name: "shared"},
	}
	if len(deps) != len(want) {
		t.Fatalf("expected %v, got %v", want, deps)
	}
	for i := range want {
		if deps[i] != want[i] {
			t.Errorf("dependency %d: expected %+v, got %+v", i, want[i], deps[i])
		}
	}
}

func TestManifestLicenseInfo(t *testing.T) {
	t.Parallel()

	t.Run("github repository yields blob URL", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "LICENSE.md"), []byte("custom"), 0600); err != nil {
			t.Fatal(err)
		}
		m := &manifest{
			Name:       "widget",
			Version:    "1.2.3",
			Repository: json.RawMessage(`"acme/widget"`),
		}

		info := m.licenseInfo(dir)
		if info.Name != "widget@1.2.3" {
			t.Errorf("unexpected name %q", info.Name)
		}
		if info.Licenses != model.LicenseUnknown {
			t.Errorf("expected UNKNOWN, got %q", info.Licenses)
		}
		if info.LicenseURL != "https://github.com/acme/widget/blob/master/LICENSE.md" {
			t.Errorf("unexpected license URL %q", info.LicenseURL)
		}
	})

	t.Run("local license file yields file URL", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "COPYING"), []byte("custom"), 0600); err != nil {
			t.Fatal(err)
		}
		m := &manifest{Name: "widget"}

		info := m.licenseInfo(dir)
		if info.Name != "widget" {
			t.Errorf("unexpected name %q", info.Name)
		}
		if !strings.HasPrefix(info.LicenseURL, "file://") || !strings.HasSuffix(info.LicenseURL, "/COPYING") {
			t.Errorf("unexpected license URL %q", info.LicenseURL)
		}
	})

	t.Run("no license file leaves URL empty", func(t *testing.T) {
		t.Parallel()

		m := &manifest{Name: "widget", License: json.RawMessage(`"MIT"`)}
		info := m.licenseInfo(t.TempDir())
		if info.LicenseURL != "" {
			t.Errorf("expected empty license URL, got %q", info.LicenseURL)
		}
	})
}
