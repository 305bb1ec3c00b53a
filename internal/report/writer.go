package report

import (
	"io"

	"github.com/nao1215/licensescan/internal/model"
)

// Writer defines the interface for report output.
// Implementations write scan results in various formats.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.ScanReport) (int, error)
}

// DiffWriter outputs the comparison of two reports.
type DiffWriter interface {
	// WriteDiff outputs the differences from the older to the newer report.
	WriteDiff(diff *model.ReportDiff) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
