package model

import "sort"

// LicenseChange describes a package whose license value changed between
// two scans.
type LicenseChange struct {
	Name   string `json:"name"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// LicenseDelta is the change of one license bucket between two scans.
type LicenseDelta struct {
	License string `json:"license"`
	Before  int    `json:"before"`
	After   int    `json:"after"`
}

// Diff returns After - Before.
func (d LicenseDelta) Diff() int {
	return d.After - d.Before
}

// ReportDiff summarizes what changed between an older and a newer report
// of the same project.
type ReportDiff struct {
	// Added lists packages present only in the newer report.
	Added []PackageLicenseInfo `json:"added,omitempty"`

	// Removed lists packages present only in the older report.
	Removed []PackageLicenseInfo `json:"removed,omitempty"`

	// Changed lists packages whose license value differs.
	Changed []LicenseChange `json:"changed,omitempty"`

	// Deltas lists every license bucket whose count differs, sorted by name.
	Deltas []LicenseDelta `json:"deltas,omitempty"`

	// TotalBefore and TotalAfter are the TotalLibraries of both reports.
	TotalBefore int `json:"total_before"`
	TotalAfter  int `json:"total_after"`
}

// HasChanges reports whether the two reports differ.
func (d *ReportDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Changed) > 0 || len(d.Deltas) > 0
}

// CompareReports computes the differences from older to newer.
// Packages are matched by Name. Either report may be nil, which is treated
// as an empty report.
func CompareReports(older, newer *ScanReport) *ReportDiff {
	if older == nil {
		older = &ScanReport{}
	}
	if newer == nil {
		newer = &ScanReport{}
	}

	diff := &ReportDiff{
		TotalBefore: older.TotalLibraries,
		TotalAfter:  newer.TotalLibraries,
	}

	before := make(map[string]PackageLicenseInfo, len(older.Packages))
	for _, p := range older.Packages {
		before[p.Name] = p
	}
	after := make(map[string]PackageLicenseInfo, len(newer.Packages))
	for _, p := range newer.Packages {
		after[p.Name] = p
	}

	for _, p := range newer.Packages {
		old, ok := before[p.Name]
		if !ok {
			diff.Added = append(diff.Added, p)
			continue
		}
		if old.Licenses != p.Licenses {
			diff.Changed = append(diff.Changed, LicenseChange{
				Name:   p.Name,
				Before: old.Licenses,
				After:  p.Licenses,
			})
		}
	}
	for _, p := range older.Packages {
		if _, ok := after[p.Name]; !ok {
			diff.Removed = append(diff.Removed, p)
		}
	}

	oldCounts := older.LicenseCounts()
	newCounts := newer.LicenseCounts()
	seen := make(map[string]bool, len(oldCounts)+len(newCounts))
	for _, counts := range []map[string]int{oldCounts, newCounts} {
		for license := range counts {
			if seen[license] {
				continue
			}
			seen[license] = true
			if oldCounts[license] != newCounts[license] {
				diff.Deltas = append(diff.Deltas, LicenseDelta{
					License: license,
					Before:  oldCounts[license],
					After:   newCounts[license],
				})
			}
		}
	}
	sort.Slice(diff.Deltas, func(i, j int) bool {
		return diff.Deltas[i].License < diff.Deltas[j].License
	})

	return diff
}
