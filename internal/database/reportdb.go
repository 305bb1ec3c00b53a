package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/licensescan/internal/model"
)

// FileName is the name of the history database inside the data directory.
const FileName = "licensescan.db"

// timestampLayout is the stored timestamp format. Fixed-width fractional
// seconds keep lexical and chronological order identical.
const timestampLayout = "2006-01-02 15:04:05.000000"

// ReportDB provides SQLite-based storage for scan reports.
// Reports are stored as JSON together with a per-license summary so that
// history listings do not need to decode full reports.
type ReportDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ReportDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ReportDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ReportDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, ErrNoDatabase)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &ReportDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (rdb *ReportDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *ReportDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *ReportDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scan_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		report_json TEXT NOT NULL,
		license_summary TEXT,
		fingerprint TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reports_project ON scan_reports(project);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON scan_reports(timestamp);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// Fingerprint returns a hex SHA3-256 digest of the retained packages and
// their license values. Two reports with the same packages and licenses
// have the same fingerprint regardless of scan time or package order.
func Fingerprint(report *model.ScanReport) string {
	lines := make([]string, 0, len(report.Packages))
	for _, p := range report.Packages {
		lines = append(lines, p.Name+"\t"+p.Licenses)
	}
	sort.Strings(lines)

	sum := sha3.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

// SaveScanReport stores a report under its project key and returns the new
// row ID.
func (rdb *ReportDB) SaveScanReport(ctx context.Context, report *model.ScanReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	summaryJSON, err := json.Marshal(report.LicenseCounts())
	if err != nil {
		return 0, fmt.Errorf("failed to serialize license summary: %w", err)
	}

	scanned := report.DateScanned
	if scanned.IsZero() {
		scanned = time.Now()
	}

	query := `
	INSERT INTO scan_reports (project, timestamp, report_json, license_summary, fingerprint)
	VALUES (?, ?, ?, ?, ?)
	`

	result, err := rdb.db.ExecContext(ctx, query,
		report.Project(),
		scanned.UTC().Format(timestampLayout),
		string(reportJSON),
		string(summaryJSON),
		Fingerprint(report),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save scan report: %w", err)
	}

	return result.LastInsertId()
}

// GetLatestScanReport retrieves the most recent report of a project.
// It returns nil without error if the project has no history.
func (rdb *ReportDB) GetLatestScanReport(ctx context.Context, project string) (*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scan_reports
	WHERE project = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var reportJSON string
	err := rdb.db.QueryRowContext(ctx, query, project).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}

	return decodeReport(reportJSON)
}

// ListScannedProjects returns every project key with stored reports.
func (rdb *ReportDB) ListScannedProjects(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT project FROM scan_reports
	ORDER BY project
	`

	rows, err := rdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []string
	for rows.Next() {
		var project string
		if err := rows.Scan(&project); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	return projects, rows.Err()
}

// GetScanHistory retrieves every report of a project, newest first.
// Malformed rows are skipped.
func (rdb *ReportDB) GetScanHistory(ctx context.Context, project string) ([]*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scan_reports
	WHERE project = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := rdb.db.QueryContext(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var reports []*model.ScanReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		report, err := decodeReport(reportJSON)
		if err != nil {
			continue
		}
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

// ScanReportMetadata contains summary information about a stored report.
// This is used for displaying scan history without loading the full report.
type ScanReportMetadata struct {
	// ID is the unique identifier of the report in the database.
	ID int64

	// Project is the key of the scanned paths.
	Project string

	// Timestamp is when the scan was performed.
	Timestamp time.Time

	// LicenseSummary maps license values to package counts.
	LicenseSummary map[string]int

	// Fingerprint identifies the package/license set of the report.
	Fingerprint string
}

// TotalLibraries returns the number of packages in the summary.
func (m ScanReportMetadata) TotalLibraries() int {
	total := 0
	for _, n := range m.LicenseSummary {
		total += n
	}
	return total
}

// GetScanHistoryWithMetadata retrieves report metadata for a project,
// newest first. This is cheaper than GetScanHistory when only the summary
// is needed.
func (rdb *ReportDB) GetScanHistoryWithMetadata(ctx context.Context, project string) ([]ScanReportMetadata, error) {
	query := `
	SELECT id, project, timestamp, license_summary, fingerprint
	FROM scan_reports
	WHERE project = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := rdb.db.QueryContext(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var results []ScanReportMetadata
	for rows.Next() {
		var meta ScanReportMetadata
		var timestamp string
		var summaryJSON, fingerprint sql.NullString

		if err := rows.Scan(&meta.ID, &meta.Project, &timestamp, &summaryJSON, &fingerprint); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		meta.Fingerprint = fingerprint.String

		meta.LicenseSummary = make(map[string]int)
		if summaryJSON.Valid && summaryJSON.String != "" {
			if err := json.Unmarshal([]byte(summaryJSON.String), &meta.LicenseSummary); err != nil {
				meta.LicenseSummary = make(map[string]int)
			}
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetScanReportByID retrieves a report by its database ID.
// It returns nil without error if no such report exists.
func (rdb *ReportDB) GetScanReportByID(ctx context.Context, id int64) (*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scan_reports
	WHERE id = ?
	`

	var reportJSON string
	err := rdb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}

	return decodeReport(reportJSON)
}

// decodeReport parses a stored report.
func decodeReport(reportJSON string) (*model.ScanReport, error) {
	var report model.ScanReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",  // stored layout; fractional seconds are accepted
	"2006-01-02T15:04:05Z", // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",  // ISO 8601 without timezone
	time.RFC3339,
	time.RFC3339Nano,
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
