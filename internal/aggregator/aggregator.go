package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nao1215/licensescan/internal/config"
	"github.com/nao1215/licensescan/internal/model"
	"github.com/nao1215/licensescan/internal/report"
	"github.com/nao1215/licensescan/internal/resolver"
)

// IsExcluded reports whether a package with the given repository is dropped
// by the exclusion list.
//
// The test is "the exclusion entry contains the repository", not the other
// way round: an entry of "https://github.com/org/repo-extra" excludes the
// repository "https://github.com/org/repo", while an entry of
// "github.com/org" excludes nothing under that organisation. Packages
// without a repository are never excluded.
func IsExcluded(repository string, exclusions []string) bool {
	if repository == "" || len(exclusions) == 0 {
		return false
	}
	for _, exclusion := range exclusions {
		if strings.Contains(exclusion, repository) {
			return true
		}
	}
	return false
}

// Aggregate builds a report from resolver results. Packages are visited in
// model.SortedNames order, so license lines appear in the order their first
// package sorts.
func Aggregate(results map[string]model.PackageLicenseInfo, excludedRepositories []string, paths []string) *model.ScanReport {
	r := model.NewScanReport(paths)
	for _, name := range model.SortedNames(results) {
		pkg := results[name]
		if IsExcluded(pkg.Repository, excludedRepositories) {
			r.ExcludedCount++
			continue
		}
		r.AddPackage(pkg)
	}
	return r
}

// Aggregator runs one scan: resolve, aggregate, print.
type Aggregator struct {
	// resolver discovers packages and their licenses.
	resolver resolver.Resolver

	// writer renders the report. Nil disables printing.
	writer report.Writer

	// logger is used for scan-level logging.
	logger *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithWriter sets the report writer.
func WithWriter(w report.Writer) Option {
	return func(a *Aggregator) {
		a.writer = w
	}
}

// New creates an Aggregator that resolves packages with res.
func New(res resolver.Resolver, opts ...Option) *Aggregator {
	a := &Aggregator{resolver: res}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// ResolverOptions maps a scan configuration to resolver input.
func ResolverOptions(cfg *config.Config) resolver.Options {
	return resolver.Options{
		Start:                  cfg.Paths,
		Exclude:                cfg.ExcludePaths,
		Dependencies:           cfg.Dependencies,
		OnlyDirectDependencies: cfg.OnlyDirectDependencies,
		NoColor:                !cfg.ColorOutput,
	}
}

// Run performs a scan with cfg.
//
// On resolver failure the error is returned unchanged and nothing is
// written; reporting the failure is the caller's job. Otherwise the report
// is written when cfg.PrintReport is set and returned in every case.
func (a *Aggregator) Run(ctx context.Context, cfg *config.Config) (*model.ScanReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a.logger.Debug("resolving packages", "paths", cfg.Paths)

	results, err := a.resolver.Resolve(ctx, ResolverOptions(cfg))
	if err != nil {
		return nil, err
	}

	r := Aggregate(results, cfg.ExcludedRepositories, cfg.Paths)

	a.logger.Debug("aggregation complete",
		"total", r.TotalLibraries,
		"licenses", len(r.Licenses),
		"excluded", r.ExcludedCount,
	)

	if cfg.PrintReport && a.writer != nil {
		if _, err := a.writer.Write(r); err != nil {
			return r, fmt.Errorf("failed to write report: %w", err)
		}
	}

	return r, nil
}
