// Package database stores license scan reports in SQLite.
//
// Saving is opt-in: the scan command writes a report only when --save is
// given, and the history command reads them back to list, show and compare
// scans of the same project. A project is identified by its absolute scan
// paths joined with commas.
package database
