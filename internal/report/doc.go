// Package report renders license scan reports.
//
// This package contains writers for different output formats:
//   - MarkdownWriter: the "Results of Scan" summary printed after a scan
//   - JSONWriter / FullJSONWriter: structured output for tool integration
//   - SimpleWriter: plain text comparison of two stored scans
//
// Report data lives in the model package; writers only format it.
// Writers that can render a comparison also implement DiffWriter.
package report
