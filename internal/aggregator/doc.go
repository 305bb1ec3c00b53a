// Package aggregator turns resolver output into a license report.
//
// A scan is a single pass: the resolver is called once, every package it
// returns is either dropped by repository exclusion or counted into exactly
// one license bucket, and the finished report is handed to a report.Writer.
// A resolver failure aborts the scan before anything is counted or printed.
package aggregator
