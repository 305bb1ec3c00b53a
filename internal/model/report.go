package model

import (
	"path/filepath"
	"strings"
	"time"
)

// LicenseCount is one bucket of the license tally.
type LicenseCount struct {
	// License is the raw license value as reported by the resolver.
	// Synonymous spellings ("MIT", "mit") are separate buckets.
	License string `json:"license"`

	// Count is the number of retained packages using this license.
	Count int `json:"count"`
}

// ScanReport is the aggregated result of a single scan.
// It is built incrementally by the aggregator and discarded after output
// (or stored in the history database when saving is enabled).
//
// Licenses keeps the order in which license values were first seen.
type ScanReport struct {
	// Paths are the scanned project paths.
	Paths []string `json:"paths"`

	// DateScanned is when the scan was performed.
	DateScanned time.Time `json:"date_scanned"`

	// TotalLibraries is the number of packages retained after exclusion.
	TotalLibraries int `json:"total_libraries"`

	// Licenses is the ordered license tally.
	Licenses []LicenseCount `json:"licenses"`

	// CustomLicenses lists license URLs (or repository URLs) of packages
	// whose license is UNKNOWN but that point to some license reference.
	CustomLicenses []string `json:"custom_licenses,omitempty"`

	// UnknownPackages lists packages with an UNKNOWN license and no reference.
	UnknownPackages []PackageLicenseInfo `json:"unknown_packages,omitempty"`

	// UnlicensedPackages lists packages explicitly marked UNLICENSED.
	UnlicensedPackages []PackageLicenseInfo `json:"unlicensed_packages,omitempty"`

	// Packages lists every retained package in aggregation order.
	Packages []PackageLicenseInfo `json:"packages,omitempty"`

	// ExcludedCount is the number of packages dropped by repository exclusion.
	ExcludedCount int `json:"excluded_count"`

	// index maps a license value to its position in Licenses.
	index map[string]int
}

// NewScanReport creates an empty report for the given scan paths.
func NewScanReport(paths []string) *ScanReport {
	return &ScanReport{
		Paths:       append([]string(nil), paths...),
		DateScanned: time.Now(),
		Licenses:    make([]LicenseCount, 0),
		index:       make(map[string]int),
	}
}

// AddPackage records a retained package: it increments the total, bumps
// the license bucket and places the package in the matching detail list.
func (r *ScanReport) AddPackage(pkg PackageLicenseInfo) {
	r.TotalLibraries++
	r.incrementLicense(pkg.Licenses)
	r.Packages = append(r.Packages, pkg)

	if pkg.IsUnknown() {
		if ref := pkg.LicenseReference(); ref != "" {
			r.CustomLicenses = append(r.CustomLicenses, ref)
		} else {
			r.UnknownPackages = append(r.UnknownPackages, pkg)
		}
	}
	if pkg.IsUnlicensed() {
		r.UnlicensedPackages = append(r.UnlicensedPackages, pkg)
	}
}

// incrementLicense bumps the bucket for license, creating it on first sight.
func (r *ScanReport) incrementLicense(license string) {
	if r.index == nil {
		r.rebuildIndex()
	}
	if i, ok := r.index[license]; ok {
		r.Licenses[i].Count++
		return
	}
	r.index[license] = len(r.Licenses)
	r.Licenses = append(r.Licenses, LicenseCount{License: license, Count: 1})
}

// rebuildIndex restores the lookup index, e.g. after JSON decoding.
func (r *ScanReport) rebuildIndex() {
	r.index = make(map[string]int, len(r.Licenses))
	for i, lc := range r.Licenses {
		r.index[lc.License] = i
	}
}

// Count returns the number of packages using license.
func (r *ScanReport) Count(license string) int {
	for _, lc := range r.Licenses {
		if lc.License == license {
			return lc.Count
		}
	}
	return 0
}

// LicenseCounts returns the tally as a map.
// Use Licenses when order matters.
func (r *ScanReport) LicenseCounts() map[string]int {
	counts := make(map[string]int, len(r.Licenses))
	for _, lc := range r.Licenses {
		counts[lc.License] = lc.Count
	}
	return counts
}

// HasIssues reports whether any package needs manual license review.
func (r *ScanReport) HasIssues() bool {
	return len(r.CustomLicenses) > 0 || len(r.UnknownPackages) > 0 || len(r.UnlicensedPackages) > 0
}

// Project returns the key under which this report is stored in the history
// database: the absolute scan paths joined by commas.
func (r *ScanReport) Project() string {
	return ProjectKey(r.Paths)
}

// ProjectKey builds a history key from scan paths.
// Relative paths are made absolute so that scans started from different
// working directories land on the same key.
func ProjectKey(paths []string) string {
	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			a = p
		}
		abs = append(abs, filepath.Clean(a))
	}
	return strings.Join(abs, ",")
}
