package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/sitemapgen/sitemapgen/internal/model"
)

// HistoryDB provides SQLite-based storage for generation runs and URL
// content hashes.
//
// Design decision: We use a single database file for all sites rather
// than one per site. This keeps the history subcommand simple and lets
// one query list runs across sites.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, "sitemapgen.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite uses mode=rw to prevent creating new files and
	// mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- Runs store one row per generation run with the full report as JSON
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		total_urls INTEGER DEFAULT 0,
		pages_crawled INTEGER DEFAULT 0,
		sitemap_files INTEGER DEFAULT 0,
		issue_summary TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_target ON runs(target);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- URLs track per-URL content hashes for stable lastmod dates
	CREATE TABLE IF NOT EXISTS urls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target TEXT NOT NULL,
		loc TEXT NOT NULL,
		content_hash TEXT,
		first_seen DATETIME NOT NULL,
		last_modified DATETIME NOT NULL,
		UNIQUE(target, loc)
	);

	CREATE INDEX IF NOT EXISTS idx_urls_target ON urls(target);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores a finished generation run. The report's RunID must be
// set before calling.
func (hdb *HistoryDB) SaveRun(ctx context.Context, report *model.GenerationReport) error {
	if report.RunID == "" {
		return fmt.Errorf("report has no run ID")
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	issueSummary := map[string]int{
		"info":    report.CountIssues(model.SeverityInfo),
		"warning": report.CountIssues(model.SeverityWarning),
		"error":   report.CountIssues(model.SeverityError),
	}
	issueJSON, _ := json.Marshal(issueSummary) //nolint:errcheck // simple map; Marshal won't fail

	query := `
	INSERT INTO runs (id, target, started_at, finished_at, total_urls, pages_crawled, sitemap_files, issue_summary, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = hdb.db.ExecContext(ctx, query,
		report.RunID,
		report.Target,
		report.StartedAt.UTC().Format(time.RFC3339),
		report.FinishedAt.UTC().Format(time.RFC3339),
		len(report.URLs),
		report.PagesCrawled,
		len(report.SitemapFiles),
		string(issueJSON),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

// RunMetadata contains summary information about a stored run.
// This is used for listing run history without loading full reports.
type RunMetadata struct {
	// ID is the run's unique identifier.
	ID string

	// Target is the site the run generated sitemaps for.
	Target string

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time

	// TotalURLs is the number of URLs in the generated sitemaps.
	TotalURLs int

	// PagesCrawled is the number of pages the crawler fetched.
	PagesCrawled int

	// SitemapFiles is the number of sitemap files written.
	SitemapFiles int

	// IssueSummary counts issues by severity name.
	IssueSummary map[string]int
}

// ListRuns returns metadata for stored runs, newest first. An empty
// target lists runs for all sites.
func (hdb *HistoryDB) ListRuns(ctx context.Context, target string) ([]RunMetadata, error) {
	query := `
	SELECT id, target, started_at, finished_at, total_urls, pages_crawled, sitemap_files, issue_summary
	FROM runs
	`
	args := make([]any, 0, 1)
	if target != "" {
		query += " WHERE target = ?"
		args = append(args, target)
	}
	query += " ORDER BY started_at DESC"

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var startedAt, finishedAt string
		var issueJSON sql.NullString

		if err := rows.Scan(
			&meta.ID,
			&meta.Target,
			&startedAt,
			&finishedAt,
			&meta.TotalURLs,
			&meta.PagesCrawled,
			&meta.SitemapFiles,
			&issueJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}

		meta.StartedAt = parseTimestamp(startedAt)
		meta.FinishedAt = parseTimestamp(finishedAt)

		meta.IssueSummary = make(map[string]int)
		if issueJSON.Valid && issueJSON.String != "" {
			if err := json.Unmarshal([]byte(issueJSON.String), &meta.IssueSummary); err != nil {
				meta.IssueSummary = make(map[string]int)
			}
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetRun retrieves a full run report by ID. Returns nil if no run with
// that ID exists.
func (hdb *HistoryDB) GetRun(ctx context.Context, runID string) (*model.GenerationReport, error) {
	query := `SELECT report_json FROM runs WHERE id = ?`

	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, query, runID).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.GenerationReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse run report: %w", err)
	}

	return &report, nil
}

// GetLatestRun retrieves the most recent run for a target. Returns nil
// if the target has no stored runs.
func (hdb *HistoryDB) GetLatestRun(ctx context.Context, target string) (*model.GenerationReport, error) {
	query := `
	SELECT report_json FROM runs
	WHERE target = ?
	ORDER BY started_at DESC
	LIMIT 1
	`

	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, query, target).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	var report model.GenerationReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse run report: %w", err)
	}

	return &report, nil
}

// ListTargets returns all sites with stored runs.
func (hdb *HistoryDB) ListTargets(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT target FROM runs ORDER BY target`

	rows, err := hdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, target)
	}

	return targets, rows.Err()
}

// ReconcileLastMod returns the lastmod date to publish for a URL given
// its current content hash. If the stored hash matches, the previously
// stored date is kept so unchanged pages do not churn their lastmod.
// New or changed content stores and returns now.
func (hdb *HistoryDB) ReconcileLastMod(ctx context.Context, target, loc, hash string, now time.Time) (time.Time, error) {
	query := `SELECT content_hash, last_modified FROM urls WHERE target = ? AND loc = ?`

	var storedHash sql.NullString
	var lastModified string
	err := hdb.db.QueryRowContext(ctx, query, target, loc).Scan(&storedHash, &lastModified)

	switch {
	case err == sql.ErrNoRows:
		insert := `
		INSERT INTO urls (target, loc, content_hash, first_seen, last_modified)
		VALUES (?, ?, ?, ?, ?)
		`
		ts := now.UTC().Format(time.RFC3339)
		if _, err := hdb.db.ExecContext(ctx, insert, target, loc, hash, ts, ts); err != nil {
			return time.Time{}, fmt.Errorf("failed to insert URL: %w", err)
		}
		return now, nil

	case err != nil:
		return time.Time{}, fmt.Errorf("failed to look up URL: %w", err)
	}

	if storedHash.Valid && storedHash.String == hash && hash != "" {
		return parseTimestamp(lastModified), nil
	}

	update := `UPDATE urls SET content_hash = ?, last_modified = ? WHERE target = ? AND loc = ?`
	if _, err := hdb.db.ExecContext(ctx, update, hash, now.UTC().Format(time.RFC3339), target, loc); err != nil {
		return time.Time{}, fmt.Errorf("failed to update URL: %w", err)
	}
	return now, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339,              // Stored format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
