// Package model defines the core data structures used throughout licensescan.
//
// This package contains the following main types:
//   - PackageLicenseInfo: License metadata of one discovered package
//   - ScanReport: The aggregated result of a single scan
//   - LicenseCount: One license bucket of a ScanReport
//   - ReportDiff: Differences between two stored scan reports
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The resolver, aggregator, report writers and the history
// database all use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
