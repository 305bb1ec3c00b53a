package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/licensescan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
//
// By default it writes only the scan summary:
//
//	# Results of Scan
//
//	**Total Libraries scanned**: <N>
//
//	- **<license>**: <count>
//
// with one bullet per license in report order.
type MarkdownWriter struct {
	baseWriter

	// details appends the custom, unknown and unlicensed sections.
	details bool
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithDetails appends sections listing packages that need manual review
// and a pie chart of the license distribution.
func WithDetails(details bool) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.details = details
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeSummary(md, report)

	if w.details {
		w.writePieChart(md, report)
		w.writeCustomLicenses(md, report)
		w.writeUnknownPackages(md, report)
		w.writeUnlicensedPackages(md, report)
		w.writeAlert(md, report)
	}

	return len(md.String()), md.Build()
}

// writeSummary writes the header, the total and one line per license.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.ScanReport) {
	md.H1("Results of Scan")
	md.PlainText("")
	md.PlainTextf("%s: %d", markdown.Bold("Total Libraries scanned"), report.TotalLibraries)
	md.PlainText("")

	if len(report.Licenses) > 0 {
		lines := make([]string, len(report.Licenses))
		for i, lc := range report.Licenses {
			lines[i] = markdown.Bold(lc.License) + ": " + strconv.Itoa(lc.Count)
		}
		md.BulletList(lines...)
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart for the license distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.ScanReport) {
	if len(report.Licenses) == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("License Distribution"),
		piechart.WithShowData(true),
	)
	for _, lc := range report.Licenses {
		chart.LabelAndIntValue(lc.License, uint64(lc.Count)) //nolint:gosec // counts are never negative
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeCustomLicenses lists license references of packages whose license
// could not be identified.
func (w *MarkdownWriter) writeCustomLicenses(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Custom Licenses")
	md.PlainText("")

	if len(report.CustomLicenses) == 0 {
		md.PlainText("None.")
		md.PlainText("")
		return
	}

	md.BulletList(report.CustomLicenses...)
	md.PlainText("")
}

// writeUnknownPackages lists packages with no license information at all.
func (w *MarkdownWriter) writeUnknownPackages(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Unknown Licenses")
	md.PlainText("")
	w.writePackageTable(md, report.UnknownPackages)
}

// writeUnlicensedPackages lists packages explicitly marked UNLICENSED.
func (w *MarkdownWriter) writeUnlicensedPackages(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Unlicensed Packages")
	md.PlainText("")
	w.writePackageTable(md, report.UnlicensedPackages)
}

// writePackageTable writes a name/version/path table.
func (w *MarkdownWriter) writePackageTable(md *markdown.Markdown, pkgs []model.PackageLicenseInfo) {
	if len(pkgs) == 0 {
		md.PlainText("None.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(pkgs))
	for i, p := range pkgs {
		rows[i] = []string{
			markdown.Code(p.Name),
			orDash(p.Version),
			orDash(p.Path),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Package", "Version", "Path"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeAlert closes the detailed report with a review hint.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.ScanReport) {
	if !report.HasIssues() {
		md.Tip("Every scanned package declares a license.")
		md.PlainText("")
		return
	}

	if len(report.UnlicensedPackages) > 0 {
		md.Cautionf(
			"%d package(s) are explicitly UNLICENSED and may not be redistributed.",
			len(report.UnlicensedPackages),
		)
	} else {
		md.Warningf(
			"%d package(s) need a manual license review.",
			len(report.UnknownPackages)+len(report.CustomLicenses),
		)
	}
	md.PlainText("")
}

// WriteDiff outputs a report comparison in Markdown format.
func (w *MarkdownWriter) WriteDiff(diff *model.ReportDiff) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Scan Comparison")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{
				"Total Libraries",
				strconv.Itoa(diff.TotalBefore),
				strconv.Itoa(diff.TotalAfter),
				formatDelta(diff.TotalAfter - diff.TotalBefore),
			},
		},
	})
	md.PlainText("")

	if !diff.HasChanges() {
		md.Note("No license changes since the previous scan.")
		return len(md.String()), md.Build()
	}

	if len(diff.Deltas) > 0 {
		md.H2("License Counts")
		md.PlainText("")
		rows := make([][]string, len(diff.Deltas))
		for i, d := range diff.Deltas {
			rows[i] = []string{
				d.License,
				strconv.Itoa(d.Before),
				strconv.Itoa(d.After),
				formatDelta(d.Diff()),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"License", "Previous", "Current", "Change"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(diff.Added) > 0 {
		md.H2("Added Packages (" + strconv.Itoa(len(diff.Added)) + ")")
		md.PlainText("")
		items := make([]string, len(diff.Added))
		for i, p := range diff.Added {
			items[i] = markdown.Bold(p.Name) + ": " + p.Licenses
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(diff.Removed) > 0 {
		md.H2("Removed Packages (" + strconv.Itoa(len(diff.Removed)) + ")")
		md.PlainText("")
		items := make([]string, len(diff.Removed))
		for i, p := range diff.Removed {
			items[i] = markdown.Strikethrough(p.Name + ": " + p.Licenses)
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(diff.Changed) > 0 {
		md.H2("License Changes (" + strconv.Itoa(len(diff.Changed)) + ")")
		md.PlainText("")
		rows := make([][]string, len(diff.Changed))
		for i, c := range diff.Changed {
			rows[i] = []string{markdown.Code(c.Name), c.Before, c.After}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Package", "Previous", "Current"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	return len(md.String()), md.Build()
}

// orDash returns s, or "-" if s is empty.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
