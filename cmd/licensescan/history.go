package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/licensescan/internal/config"
	"github.com/nao1215/licensescan/internal/database"
	"github.com/nao1215/licensescan/internal/model"
	"github.com/nao1215/licensescan/internal/report"
)

const (
	historyDateLayout = "2006-01-02 15:04:05"
	noLicensesMessage = "No packages"

	// Values of the Changes column: how a scan relates to the one before it.
	changeFirst     = "first"
	changeChanged   = "changed"
	changeUnchanged = "unchanged"
)

// NewHistoryCmd creates the history command.
// This command reads reports stored by 'licensescan --save'.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [path...]",
		Short: "Show and compare stored scan reports",
		Long: `History displays reports saved with 'licensescan --save'.

Reports are keyed by the absolute paths of the scan, so pass the same
paths that were scanned. Without a path, the current directory is used.

Examples:
  # List stored scans of the current project
  licensescan history

  # Show what changed between the latest two scans
  licensescan history --compare .

  # Print a stored report by ID
  licensescan history --id 3

  # Print the latest stored report of a project
  licensescan history --latest ./web

  # Output the comparison as JSON
  licensescan history --compare --json ./web ./api

  # List all projects in the database
  licensescan history --list-projects`,
		Args: cobra.ArbitraryArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-projects", "L", false,
		"List all scanned projects in the database")
	cmd.Flags().Int64("id", 0,
		"Print the stored report with this ID")
	cmd.Flags().Bool("latest", false,
		"Print the latest stored report of the project")
	cmd.Flags().BoolP("compare", "C", false,
		"Compare the latest two scans of the project")
	cmd.Flags().Bool("show-unchanged", false,
		"Print empty sections in the text comparison")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the scan history database")

	return cmd
}

// historyOptions holds the parsed history flags.
type historyOptions struct {
	listProjects bool
	id            int64
	latest        bool
	compare       bool
	showUnchanged bool
	jsonOutput    bool
	markdown      bool
	dbDir         string
}

func parseHistoryFlags(cmd *cobra.Command) (historyOptions, error) {
	var (
		opts historyOptions
		err  error
	)
	flags := cmd.Flags()
	if opts.listProjects, err = flags.GetBool("list-projects"); err != nil {
		return opts, err
	}
	if opts.id, err = flags.GetInt64("id"); err != nil {
		return opts, err
	}
	if opts.latest, err = flags.GetBool("latest"); err != nil {
		return opts, err
	}
	if opts.compare, err = flags.GetBool("compare"); err != nil {
		return opts, err
	}
	if opts.showUnchanged, err = flags.GetBool("show-unchanged"); err != nil {
		return opts, err
	}
	if opts.jsonOutput, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return opts, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return opts, err
	}
	return opts, nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryFlags(cmd)
	if err != nil {
		return err
	}

	// Validate before opening the database.
	if opts.id < 0 {
		return fmt.Errorf("invalid report ID %d", opts.id)
	}
	selected := 0
	for _, set := range []bool{opts.id > 0, opts.latest, opts.compare} {
		if set {
			selected++
		}
	}
	if selected > 1 {
		return errors.New("--id, --latest and --compare cannot be used together")
	}

	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}
	project := model.ProjectKey(paths)

	out := cmd.OutOrStdout()

	// history only reads; never create an empty database here.
	db, err := database.Open(opts.dbDir, database.Options{CreateIfNotExists: false})
	if errors.Is(err, database.ErrNoDatabase) {
		fmt.Fprintln(out, "No scan history found.")
		fmt.Fprintln(out, "\nUse 'licensescan --save <path>' to store scan reports.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case opts.listProjects:
		return listScannedProjects(ctx, out, db)
	case opts.id > 0:
		return showScanReport(ctx, out, db, opts.id, opts.jsonOutput)
	case opts.latest:
		return showLatestScanReport(ctx, out, db, project, opts.jsonOutput)
	case opts.compare:
		return compareLatestScans(ctx, out, db, project, opts)
	default:
		return listScanHistory(ctx, out, db, project)
	}
}

// listScannedProjects lists all projects that have reports in the database.
func listScannedProjects(ctx context.Context, out io.Writer, db *database.ReportDB) error {
	projects, err := db.ListScannedProjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	if len(projects) == 0 {
		fmt.Fprintln(out, "No scanned projects found in the database.")
		fmt.Fprintln(out, "\nUse 'licensescan --save <path>' to store scan reports.")
		return nil
	}

	fmt.Fprintf(out, "Scanned projects (%d):\n\n", len(projects))
	for _, project := range projects {
		fmt.Fprintf(out, "  • %s\n", project)
	}
	fmt.Fprintln(out, "\nUse 'licensescan history <path...>' to see the scan history of a project.")

	return nil
}

// listScanHistory lists all stored reports of a project, newest first.
func listScanHistory(ctx context.Context, out io.Writer, db *database.ReportDB, project string) error {
	reports, err := db.GetScanHistoryWithMetadata(ctx, project)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(reports) == 0 {
		fmt.Fprintf(out, "No scan history found for %s\n", project)
		fmt.Fprintln(out, "\nUse 'licensescan --save <path>' to store scan reports.")
		return nil
	}

	fmt.Fprintf(out, "Scan history for %s (%d scans):\n\n", project, len(reports))
	fmt.Fprintf(out, "  %-6s  %-20s  %-8s  %-10s  %s\n", "ID", "Date", "Total", "Changes", "Licenses")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 72))

	changes := scanChanges(reports)
	for i, meta := range reports {
		fmt.Fprintf(out, "  %-6d  %-20s  %-8d  %-10s  %s\n",
			meta.ID,
			meta.Timestamp.Format(historyDateLayout),
			meta.TotalLibraries(),
			changes[i],
			formatLicenseSummary(meta.LicenseSummary),
		)
	}

	fmt.Fprintln(out, "\nUse 'licensescan history --compare <path...>' to compare the latest two scans.")
	fmt.Fprintln(out, "Use 'licensescan history --id <id>' to print a stored report.")

	return nil
}

// scanChanges labels each scan of a newest-first history by comparing its
// fingerprint with the next older scan.
func scanChanges(reports []database.ScanReportMetadata) []string {
	changes := make([]string, len(reports))
	for i, meta := range reports {
		switch {
		case i == len(reports)-1:
			changes[i] = changeFirst
		case meta.Fingerprint != "" && meta.Fingerprint == reports[i+1].Fingerprint:
			changes[i] = changeUnchanged
		default:
			changes[i] = changeChanged
		}
	}
	return changes
}

// formatLicenseSummary renders a license summary as "ISC:1 MIT:3".
func formatLicenseSummary(summary map[string]int) string {
	if len(summary) == 0 {
		return noLicensesMessage
	}

	parts := make([]string, 0, len(summary))
	for _, license := range slices.Sorted(maps.Keys(summary)) {
		parts = append(parts, fmt.Sprintf("%s:%d", license, summary[license]))
	}
	return strings.Join(parts, " ")
}

// showScanReport prints one stored report.
func showScanReport(ctx context.Context, out io.Writer, db *database.ReportDB, id int64, jsonOutput bool) error {
	stored, err := db.GetScanReportByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get scan with ID %d: %w", id, err)
	}
	if stored == nil {
		return fmt.Errorf("scan with ID %d not found", id)
	}
	return writeStoredReport(out, stored, jsonOutput)
}

// showLatestScanReport prints the most recent report of a project.
func showLatestScanReport(ctx context.Context, out io.Writer, db *database.ReportDB, project string, jsonOutput bool) error {
	stored, err := db.GetLatestScanReport(ctx, project)
	if err != nil {
		return fmt.Errorf("failed to get latest scan: %w", err)
	}
	if stored == nil {
		return fmt.Errorf("no scan history found for %s", project)
	}
	return writeStoredReport(out, stored, jsonOutput)
}

// writeStoredReport renders a stored report with details.
func writeStoredReport(out io.Writer, stored *model.ScanReport, jsonOutput bool) error {
	var w report.Writer
	if jsonOutput {
		w = report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	} else {
		w = report.NewMarkdownWriter(out, report.WithDetails(true))
	}
	if _, err := w.Write(stored); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// compareLatestScans diffs the two most recent reports of a project.
func compareLatestScans(ctx context.Context, out io.Writer, db *database.ReportDB, project string, opts historyOptions) error {
	reports, err := db.GetScanHistory(ctx, project)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(reports) == 0 {
		return fmt.Errorf("no scan history found for %s", project)
	}
	if len(reports) < 2 {
		return fmt.Errorf("at least 2 scans are required for comparison (found %d)", len(reports))
	}

	// History is newest first.
	diff := model.CompareReports(reports[1], reports[0])

	var w report.DiffWriter
	switch {
	case opts.jsonOutput:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case opts.markdown:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out, report.WithShowUnchanged(opts.showUnchanged))
	}
	if _, err := w.WriteDiff(diff); err != nil {
		return fmt.Errorf("failed to write comparison: %w", err)
	}
	return nil
}
