package resolver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nao1215/licensescan/internal/model"
)

// manifestFile is the npm package manifest file name.
const manifestFile = "package.json"

// seeLicenseIn is the npm convention for pointing at a custom license file.
const seeLicenseIn = "SEE LICENSE IN "

// licenseFilePrefixes are upper-cased file name prefixes recognised as
// license texts.
var licenseFilePrefixes = []string{"LICENSE", "LICENCE", "COPYING"}

// manifest is the subset of package.json the resolver reads.
// license, licenses and repository come in several historical shapes, so
// they are kept raw and decoded by the helpers below.
type manifest struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	License              json.RawMessage   `json:"license"`
	Licenses             json.RawMessage   `json:"licenses"`
	Repository           json.RawMessage   `json:"repository"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

// readManifest parses the package.json at path.
func readManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Paths come from walking the scan root
	if err != nil {
		return nil, err
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &m, nil
}

// key returns the result key "name@version".
func (m *manifest) key() string {
	if m.Version == "" {
		return m.Name
	}
	return m.Name + "@" + m.Version
}

// projectDependencies returns every dependency a project root declares,
// sorted by name.
func (m *manifest) projectDependencies() []dependency {
	return collectDependencies(m.Dependencies, m.DevDependencies, m.OptionalDependencies)
}

// runtimeDependencies returns the dependencies a package needs when
// installed as someone else's dependency, sorted by name.
func (m *manifest) runtimeDependencies() []dependency {
	return collectDependencies(m.Dependencies, nil, m.OptionalDependencies)
}

// dependency is a declared dependency name.
type dependency struct {
	name     string
	optional bool
}

// collectDependencies merges dependency maps. A name listed both as a
// regular and an optional dependency counts as regular.
func collectDependencies(regular, dev, optional map[string]string) []dependency {
	seen := make(map[string]bool, len(regular)+len(dev)+len(optional))
	for name := range regular {
		seen[name] = false
	}
	for name := range dev {
		seen[name] = false
	}
	for name := range optional {
		if _, ok := seen[name]; !ok {
			seen[name] = true
		}
	}

	deps := make([]dependency, 0, len(seen))
	for name, opt := range seen {
		deps = append(deps, dependency{name: name, optional: opt})
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].name < deps[j].name })
	return deps
}

// licenseInfo converts a manifest found in dir into result metadata.
func (m *manifest) licenseInfo(dir string) model.PackageLicenseInfo {
	license, referencedFile := parseLicense(m.License, m.Licenses)
	repo := parseRepository(m.Repository)

	info := model.PackageLicenseInfo{
		Name:       m.key(),
		Version:    m.Version,
		Licenses:   license,
		Repository: repo,
		Path:       dir,
	}

	file := referencedFile
	if file == "" {
		file = findLicenseFile(dir)
	}
	if file != "" {
		info.LicenseURL = licenseURL(repo, dir, file)
	}

	return info
}

// licenseEntry is the object form {"type": "MIT", "url": "..."}.
type licenseEntry struct {
	Type string `json:"type"`
}

// parseLicense determines the license value from the "license" and legacy
// "licenses" fields. It returns model.LicenseUnknown when neither yields an
// identifier. When the manifest says "SEE LICENSE IN <file>", the license is
// unknown and the referenced file name is returned as well.
func parseLicense(license, licenses json.RawMessage) (string, string) {
	if v := decodeLicenseValue(license); v != "" {
		if strings.HasPrefix(strings.ToUpper(v), seeLicenseIn) {
			return model.LicenseUnknown, strings.TrimSpace(v[len(seeLicenseIn):])
		}
		return v, ""
	}

	if len(licenses) > 0 {
		var list []json.RawMessage
		if err := json.Unmarshal(licenses, &list); err == nil {
			values := make([]string, 0, len(list))
			for _, item := range list {
				if v := decodeLicenseValue(item); v != "" {
					values = append(values, v)
				}
			}
			switch len(values) {
			case 0:
			case 1:
				return values[0], ""
			default:
				return "(" + strings.Join(values, " OR ") + ")", ""
			}
		} else if v := decodeLicenseValue(licenses); v != "" {
			return v, ""
		}
	}

	return model.LicenseUnknown, ""
}

// decodeLicenseValue decodes a license given as a string or {type}.
func decodeLicenseValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var entry licenseEntry
	if err := json.Unmarshal(raw, &entry); err == nil {
		return strings.TrimSpace(entry.Type)
	}
	return ""
}

// repositoryEntry is the object form {"type": "git", "url": "..."}.
type repositoryEntry struct {
	URL string `json:"url"`
}

// parseRepository decodes the "repository" field and normalises it to a
// browsable https URL where the form is recognised.
func parseRepository(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var entry repositoryEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return ""
		}
		s = entry.URL
	}
	return normalizeRepository(s)
}

// hostShorthands maps npm repository shorthands to hosts.
var hostShorthands = map[string]string{
	"github:":    "github.com",
	"gitlab:":    "gitlab.com",
	"bitbucket:": "bitbucket.org",
}

// normalizeRepository turns the many git URL spellings found in manifests
// into https URLs.
func normalizeRepository(repo string) string {
	repo = strings.TrimSpace(repo)
	if repo == "" {
		return ""
	}

	if i := strings.Index(repo, "#"); i >= 0 {
		repo = repo[:i]
	}
	repo = strings.TrimPrefix(repo, "git+")

	for prefix, host := range hostShorthands {
		if strings.HasPrefix(repo, prefix) {
			repo = "https://" + host + "/" + strings.TrimPrefix(repo, prefix)
		}
	}

	switch {
	case strings.HasPrefix(repo, "git@"):
		// git@github.com:owner/repo
		rest := strings.TrimPrefix(repo, "git@")
		repo = "https://" + strings.Replace(rest, ":", "/", 1)
	case strings.HasPrefix(repo, "ssh://git@"):
		repo = "https://" + strings.TrimPrefix(repo, "ssh://git@")
	case strings.HasPrefix(repo, "git://"):
		repo = "https://" + strings.TrimPrefix(repo, "git://")
	case !strings.Contains(repo, "://") && strings.Count(repo, "/") == 1 && !strings.HasPrefix(repo, "."):
		// owner/repo shorthand
		repo = "https://github.com/" + repo
	}

	repo = strings.TrimSuffix(repo, "/")
	repo = strings.TrimSuffix(repo, ".git")
	return repo
}

// findLicenseFile returns the name of the first license-looking file in dir.
func findLicenseFile(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		upper := strings.ToUpper(e.Name())
		for _, prefix := range licenseFilePrefixes {
			if strings.HasPrefix(upper, prefix) {
				return e.Name()
			}
		}
	}
	return ""
}

// licenseURL builds a link to a license file: a blob URL on GitHub when the
// repository is hosted there, otherwise a file URL on the local disk.
func licenseURL(repo, dir, file string) string {
	if strings.HasPrefix(repo, "https://github.com/") {
		return repo + "/blob/master/" + filepath.ToSlash(file)
	}
	abs, err := filepath.Abs(filepath.Join(dir, file))
	if err != nil {
		abs = filepath.Join(dir, file)
	}
	return "file://" + filepath.ToSlash(abs)
}
