package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Default configuration values.
// The boolean defaults mirror the behaviour of the npm license crawler
// wrapper this tool replaces, so existing CI invocations keep their output.
const (
	// DefaultDependencies lists only dependencies declared in package.json.
	DefaultDependencies = true

	// DefaultIndirect excludes transitive dependencies.
	DefaultIndirect = false

	// DefaultColor enables colored resolver diagnostics.
	DefaultColor = true

	// DefaultReport prints the markdown summary.
	DefaultReport = true

	// DefaultConcurrency is the number of scan paths resolved in parallel.
	// Resolution is disk-bound, so a small value is enough.
	DefaultConcurrency = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "licensescan"
)

// Config holds all options of a single scan invocation (the scan
// configuration). It is built once from CLI flags and the optional config
// file, then passed explicitly to the resolver and the aggregator.
type Config struct {
	// Paths are the project paths to scan. Must contain at least one entry.
	Paths []string

	// ExcludePaths are paths or glob patterns the resolver skips.
	ExcludePaths []string

	// Dependencies limits the resolver to packages declared as dependencies
	// in package.json. When false, every manifest found is listed.
	Dependencies bool

	// OnlyDirectDependencies limits output to first-level dependencies.
	// It is the inverse of the --indirect flag.
	OnlyDirectDependencies bool

	// ColorOutput enables ANSI colors in the resolver's diagnostic output.
	// It does not affect the report.
	ColorOutput bool

	// PrintReport controls whether the report is written at all.
	// Aggregation runs either way.
	PrintReport bool

	// ExcludedRepositories are repository URL strings; packages whose
	// repository matches any entry are dropped from the report.
	ExcludedRepositories []string

	// JSONReport writes the report as JSON instead of markdown.
	JSONReport bool

	// Details appends custom, unknown and unlicensed sections to the
	// markdown report.
	Details bool

	// ReportFile is the output file path for the report.
	// When empty, the report goes to stdout.
	ReportFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, the default locations are searched.
	ConfigFilePath string

	// SaveToDB stores the report in the scan history database.
	SaveToDB bool

	// DBDir is the directory of the history database.
	// Defaults to the XDG data directory.
	DBDir string

	// Concurrency is the number of scan paths resolved in parallel.
	Concurrency int

	// Verbose enables debug logging.
	Verbose bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Dependencies:           DefaultDependencies,
		OnlyDirectDependencies: !DefaultIndirect,
		ColorOutput:            DefaultColor,
		PrintReport:            DefaultReport,
		ExcludedRepositories:   []string{},
		Concurrency:            DefaultConcurrency,
		DBDir:                  XDGDataDir(),
	}
}

// ApplyFile merges values from a config file into c.
// File values come first; values already on c (from flags) are appended
// after them so that both sources apply.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.ExcludePaths = append(append([]string{}, f.Exclude...), c.ExcludePaths...)
	c.ExcludedRepositories = append(append([]string{}, f.ExcludeRepo...), c.ExcludedRepositories...)
}

// XDGDataDir returns the XDG data directory for licensescan.
// On Linux: ~/.local/share/licensescan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for licensescan.
// On Linux: ~/.config/licensescan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
//
// Paths are not checked for existence here; an unreadable path is the
// resolver's concern and surfaces as a resolver error.
func (c *Config) Validate() error {
	if len(c.Paths) == 0 {
		return ErrNoPath
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	return nil
}
