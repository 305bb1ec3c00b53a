package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/licensescan/internal/aggregator"
	"github.com/nao1215/licensescan/internal/config"
	"github.com/nao1215/licensescan/internal/database"
	"github.com/nao1215/licensescan/internal/log"
	"github.com/nao1215/licensescan/internal/model"
	"github.com/nao1215/licensescan/internal/report"
	"github.com/nao1215/licensescan/internal/resolver"
)

// addScanFlags registers the scan flags on cmd.
func addScanFlags(cmd *cobra.Command) {
	// Resolver flags
	cmd.Flags().StringArrayP("exclude", "x", nil,
		"Path or glob to exclude from scanning (repeatable)")
	cmd.Flags().Bool("dependencies", config.DefaultDependencies,
		"Show only third-party licenses, i.e. only the dependencies defined in package.json")
	cmd.Flags().Bool("indirect", config.DefaultIndirect,
		"Include licenses of non-direct dependencies")
	cmd.Flags().Bool("color", config.DefaultColor,
		"Show color in the resolver output")
	cmd.Flags().Int("concurrency", config.DefaultConcurrency,
		"Number of paths resolved in parallel")

	// Report flags
	cmd.Flags().Bool("report", config.DefaultReport,
		"Print the markdown report")
	cmd.Flags().StringArray("excludeRepo", nil,
		"Drop packages whose repository URL is contained in this value (repeatable)")
	cmd.Flags().BoolP("json", "j", false,
		"Output the report as JSON")
	cmd.Flags().BoolP("details", "D", false,
		"Append custom, unknown and unlicensed package sections to the markdown report")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// Negated forms of the boolean defaults that are true.
	cmd.Flags().Bool("no-dependencies", false, "Same as --dependencies=false")
	cmd.Flags().Bool("no-color", false, "Same as --color=false")
	cmd.Flags().Bool("no-report", false, "Same as --report=false")
	for _, name := range []string{"no-dependencies", "no-color", "no-report"} {
		_ = cmd.Flags().MarkHidden(name) //nolint:errcheck // flag is registered above
	}

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .licensescan in current or home directory)")

	// History flags
	cmd.Flags().Bool("save", false,
		"Store the report in the scan history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the scan history database")
}

// runScanCmd executes the scan.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrNoPath) {
			return fmt.Errorf("%w (usage: %s)", err, cmd.UseLine())
		}
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runScan(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the optional
// configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	if cfg.ExcludePaths, err = flags.GetStringArray("exclude"); err != nil {
		return nil, err
	}
	if cfg.Dependencies, err = flags.GetBool("dependencies"); err != nil {
		return nil, err
	}
	indirect, err := flags.GetBool("indirect")
	if err != nil {
		return nil, err
	}
	cfg.OnlyDirectDependencies = !indirect
	if cfg.ColorOutput, err = flags.GetBool("color"); err != nil {
		return nil, err
	}
	if cfg.PrintReport, err = flags.GetBool("report"); err != nil {
		return nil, err
	}

	for name, target := range map[string]*bool{
		"no-dependencies": &cfg.Dependencies,
		"no-color":        &cfg.ColorOutput,
		"no-report":       &cfg.PrintReport,
	} {
		negated, err := flags.GetBool(name)
		if err != nil {
			return nil, err
		}
		if negated {
			*target = false
		}
	}

	excludeRepo, err := flags.GetStringArray("excludeRepo")
	if err != nil {
		return nil, err
	}
	cfg.ExcludedRepositories = append(cfg.ExcludedRepositories, excludeRepo...)

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.Details, err = flags.GetBool("details"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.SaveToDB, err = flags.GetBool("save"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	// An explicitly requested config file must exist; otherwise a missing
	// file just means no file settings.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(file)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Paths = args

	return cfg, nil
}

// setupLogger creates a structured logger that masks credentials.
func setupLogger(w io.Writer, verbose bool) *slog.Logger {
	return log.NewSecureLogger(w, verbose)
}

// runScan resolves, aggregates and prints one scan, then saves it if
// requested.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	logger.Info("starting scan",
		"paths", cfg.Paths,
		"dependencies", cfg.Dependencies,
		"onlyDirect", cfg.OnlyDirectDependencies,
		"saveToDB", cfg.SaveToDB,
	)

	// A report file is rendered in memory and written only after a
	// successful scan, so a failed scan leaves an existing file untouched.
	var rendered bytes.Buffer
	output := stdout
	if cfg.ReportFile != "" {
		output = &rendered
	}

	// JSON on stdout must stay parseable, so diagnostics move to stderr.
	diag := stdout
	if cfg.JSONReport && cfg.ReportFile == "" {
		diag = stderr
	}

	res, err := resolver.NewNPMResolver(
		resolver.WithLogger(logger),
		resolver.WithDiagnosticWriter(diag),
		resolver.WithConcurrency(cfg.Concurrency),
	)
	if err != nil {
		return err
	}

	agg := aggregator.New(res,
		aggregator.WithLogger(logger),
		aggregator.WithWriter(newReportWriter(cfg, output)),
	)

	scanReport, err := agg.Run(ctx, cfg)
	if err != nil {
		return err
	}

	if cfg.ReportFile != "" && cfg.PrintReport {
		if err := writeReportFile(cfg.ReportFile, rendered.Bytes()); err != nil {
			return err
		}
	}

	return saveScanReport(ctx, cfg, scanReport, logger)
}

// newReportWriter selects the report format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	if cfg.JSONReport {
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	}
	return report.NewMarkdownWriter(output, report.WithDetails(cfg.Details))
}

// writeReportFile writes a rendered report to path, creating parent
// directories as needed.
func writeReportFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports list local paths, so keep them owner-readable only.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// saveScanReport stores the report in the history database if enabled.
func saveScanReport(ctx context.Context, cfg *config.Config, scanReport *model.ScanReport, logger *slog.Logger) error {
	if !cfg.SaveToDB {
		return nil
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	previous, err := db.GetLatestScanReport(ctx, scanReport.Project())
	if err != nil {
		return fmt.Errorf("failed to load previous scan: %w", err)
	}
	if previous != nil && database.Fingerprint(previous) == database.Fingerprint(scanReport) {
		logger.Info("licenses unchanged since the previous scan",
			"previous", previous.DateScanned,
		)
	}

	id, err := db.SaveScanReport(ctx, scanReport)
	if err != nil {
		return fmt.Errorf("failed to save scan report: %w", err)
	}

	logger.Info("scan report saved to database",
		"id", id,
		"project", scanReport.Project(),
		"db", db.Path(),
	)
	return nil
}
