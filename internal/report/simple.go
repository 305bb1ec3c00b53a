package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/licensescan/internal/model"
)

// SimpleWriter outputs plain text comparisons of two scans.
// This format is designed for terminal display and is easy to pipe to
// files or other tools.
type SimpleWriter struct {
	baseWriter

	// showUnchanged prints a line even when nothing changed per section.
	showUnchanged bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowUnchanged configures the writer to print empty sections.
func WithShowUnchanged(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showUnchanged = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteDiff outputs a report comparison in human-readable format.
func (w *SimpleWriter) WriteDiff(diff *model.ReportDiff) (int, error) {
	var sb strings.Builder

	sb.WriteString("Scan Comparison\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Total libraries: %d -> %d (%s)\n",
		diff.TotalBefore, diff.TotalAfter, formatDelta(diff.TotalAfter-diff.TotalBefore)))

	if !diff.HasChanges() {
		sb.WriteString("\nNo license changes since the previous scan.\n")
		return w.output.Write([]byte(sb.String()))
	}

	w.writeDeltas(&sb, diff.Deltas)
	w.writePackages(&sb, "Added", "[+]", diff.Added)
	w.writePackages(&sb, "Removed", "[-]", diff.Removed)
	w.writeChanges(&sb, diff.Changed)

	return w.output.Write([]byte(sb.String()))
}

// writeDeltas writes the per-license count table.
func (w *SimpleWriter) writeDeltas(sb *strings.Builder, deltas []model.LicenseDelta) {
	if len(deltas) == 0 && !w.showUnchanged {
		return
	}

	sb.WriteString("\nLicense Counts:\n")
	if len(deltas) == 0 {
		sb.WriteString("  unchanged\n")
		return
	}

	sb.WriteString(fmt.Sprintf("  %-24s  %-8s  %-8s  %-8s\n", "License", "Previous", "Current", "Change"))
	sb.WriteString("  " + strings.Repeat("-", 56) + "\n")
	for _, d := range deltas {
		sb.WriteString(fmt.Sprintf("  %-24s  %-8d  %-8d  %-8s\n",
			d.License, d.Before, d.After, formatDelta(d.Diff())))
	}
}

// writePackages writes an added or removed package section.
func (w *SimpleWriter) writePackages(sb *strings.Builder, title, marker string, pkgs []model.PackageLicenseInfo) {
	if len(pkgs) == 0 && !w.showUnchanged {
		return
	}

	sb.WriteString(fmt.Sprintf("\n%s Packages (%d):\n", title, len(pkgs)))
	for _, p := range pkgs {
		sb.WriteString(fmt.Sprintf("  %s %s: %s\n", marker, p.Name, p.Licenses))
	}
}

// writeChanges writes packages whose license value changed.
func (w *SimpleWriter) writeChanges(sb *strings.Builder, changes []model.LicenseChange) {
	if len(changes) == 0 && !w.showUnchanged {
		return
	}

	sb.WriteString(fmt.Sprintf("\nLicense Changes (%d):\n", len(changes)))
	for _, c := range changes {
		sb.WriteString(fmt.Sprintf("  [~] %s: %s -> %s\n", c.Name, c.Before, c.After))
	}
}
