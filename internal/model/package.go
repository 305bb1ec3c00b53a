package model

// Sentinel license values.
// A resolver reports one of these instead of an SPDX identifier when the
// package declares no usable license.
const (
	// LicenseUnknown means no license identifier could be determined.
	// The package may still ship a custom license file.
	LicenseUnknown = "UNKNOWN"

	// LicenseUnlicensed means the package explicitly grants no license.
	LicenseUnlicensed = "UNLICENSED"
)

// PackageLicenseInfo is the license metadata of a single discovered package.
// Field names in JSON follow the npm license crawler output so reports stay
// familiar to users of the JavaScript tooling.
type PackageLicenseInfo struct {
	// Name is the unique key of the package within a result set,
	// typically "name@version".
	Name string `json:"name"`

	// Version is the installed version, if known.
	Version string `json:"version,omitempty"`

	// Licenses is the license identifier string, or LicenseUnknown /
	// LicenseUnlicensed.
	Licenses string `json:"licenses"`

	// LicenseURL points to the license text, if one was found.
	LicenseURL string `json:"licenseUrl,omitempty"` //nolint:tagliatelle // npm crawler field name

	// Repository is the source repository URL, if declared.
	Repository string `json:"repository,omitempty"`

	// Path is the directory containing the package manifest.
	Path string `json:"path,omitempty"`
}

// IsUnknown reports whether the package has no determinable license.
func (p PackageLicenseInfo) IsUnknown() bool {
	return p.Licenses == LicenseUnknown
}

// IsUnlicensed reports whether the package is explicitly unlicensed.
func (p PackageLicenseInfo) IsUnlicensed() bool {
	return p.Licenses == LicenseUnlicensed
}

// LicenseReference returns the best pointer to a custom license:
// the license URL if present, else the repository URL.
// It returns an empty string if neither is known.
func (p PackageLicenseInfo) LicenseReference() string {
	if p.LicenseURL != "" {
		return p.LicenseURL
	}
	return p.Repository
}
