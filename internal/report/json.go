package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/nao1215/licensescan/internal/model"
)

// JSONWriter writes reports and comparisons as JSON.
type JSONWriter struct {
	baseWriter

	// pretty indents nested values by two spaces.
	pretty bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint indents the output for reading in a terminal.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.pretty = true
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in JSON format.
func (w *JSONWriter) Write(report *model.ScanReport) (int, error) {
	return w.writeJSON(report)
}

// WriteDiff outputs a report comparison in JSON format.
func (w *JSONWriter) WriteDiff(diff *model.ReportDiff) (int, error) {
	return w.writeJSON(diff)
}

// writeJSON encodes v as one JSON document followed by a newline.
// HTML characters are not escaped; license URLs stay readable.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if w.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}

// JSONReport wraps a report with the version of the tool that produced it.
type JSONReport struct {
	// Version is the licensescan version that generated this report.
	Version string `json:"version"`

	// Project is the history key of the scanned paths.
	Project string `json:"project"`

	// Report is the full scan report.
	Report *model.ScanReport `json:"report"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(report *model.ScanReport, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Project: report.Project(),
		Report:  report,
	}
}

// FullJSONWriter outputs reports with the metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	// version is the licensescan version string.
	version string
}

// NewFullJSONWriter creates a writer for complete reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the report wrapped with metadata.
func (w *FullJSONWriter) Write(report *model.ScanReport) (int, error) {
	return w.writeJSON(NewJSONReport(report, w.version))
}
