package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sitemapgen/sitemapgen/internal/config"
	"github.com/sitemapgen/sitemapgen/internal/database"
	"github.com/sitemapgen/sitemapgen/internal/model"
)

// Constants for coverage direction and summary messages.
const (
	coverageDirectionGrew      = "grew"
	coverageDirectionShrank    = "shrank"
	coverageDirectionUnchanged = "unchanged"
	noIssuesMessage            = "No issues"
)

// NewHistoryCmd creates the history command.
// This command inspects generation runs stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [site-url]",
		Short: "Inspect and compare past generation runs",
		Long: `History displays past generation runs stored in the database.

By default it compares the latest two runs for a site and shows:
- URLs that appeared since the previous run
- URLs that disappeared from the sitemap
- Changes in page, file, and issue counts

Every 'sitemapgen generate' run is recorded automatically, so history
accumulates as you regenerate sitemaps.

Examples:
  # Compare the latest two runs for a site
  sitemapgen history example.com

  # List run history for a site
  sitemapgen history --list example.com

  # Compare the latest run with a specific run by ID
  sitemapgen history --with-run-id 6c0f...-a2 example.com

  # Output the comparison in JSON format
  sitemapgen history --json example.com

  # List all sites in the database
  sitemapgen history --list-sites`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List run history for the specified site")
	cmd.Flags().BoolP("list-sites", "L", false,
		"List all sites in the database")

	// Comparison target flags
	cmd.Flags().StringP("with-run-id", "i", "",
		"Compare with a specific run by ID (use --list to see available IDs)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listSites, err := cmd.Flags().GetBool("list-sites")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database so lock contention
	// never follows a usage error.
	var target string
	if !listSites {
		if len(args) == 0 {
			return errors.New("site URL is required (use --list-sites to see available sites)")
		}

		target, err = normalizeTarget(args[0])
		if err != nil {
			return fmt.Errorf("invalid site URL: %w", err)
		}
	}

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	if listSites {
		return listStoredSites(ctx, db)
	}

	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listRunHistory(ctx, db, target)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	withRunID, err := cmd.Flags().GetString("with-run-id")
	if err != nil {
		return err
	}

	return runComparison(ctx, db, target, withRunID, jsonOutput)
}

// listStoredSites lists all sites with runs in the database.
func listStoredSites(ctx context.Context, db *database.HistoryDB) error {
	targets, err := db.ListTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sites: %w", err)
	}

	if len(targets) == 0 {
		fmt.Println("No generation runs found in the database.")
		fmt.Println("\nUse 'sitemapgen generate <site-url>' to generate sitemaps.")
		return nil
	}

	fmt.Printf("Sites with stored runs (%d):\n\n", len(targets))
	for _, target := range targets {
		fmt.Printf("  • %s\n", target)
	}
	fmt.Println("\nUse 'sitemapgen history --list <site-url>' to see run history for a site.")

	return nil
}

// listRunHistory lists all stored runs for a site.
func listRunHistory(ctx context.Context, db *database.HistoryDB, target string) error {
	runs, err := db.ListRuns(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Printf("No run history found for %s\n", target)
		fmt.Println("\nUse 'sitemapgen generate' to generate sitemaps for this site.")
		return nil
	}

	fmt.Printf("Run history for %s (%d runs):\n\n", target, len(runs))
	fmt.Printf("  %-38s  %-20s  %-8s  %-7s  %s\n", "ID", "Date", "URLs", "Files", "Issues")
	fmt.Println("  " + strings.Repeat("-", 84))

	for _, meta := range runs {
		fmt.Printf("  %-38s  %-20s  %-8d  %-7d  %s\n",
			meta.ID,
			meta.StartedAt.Format("2006-01-02 15:04:05"),
			meta.TotalURLs,
			meta.SitemapFiles,
			formatIssueSummary(meta.IssueSummary),
		)
	}

	fmt.Println("\nUse 'sitemapgen history <site-url>' to compare the latest two runs.")
	fmt.Println("Use 'sitemapgen history --with-run-id <id> <site-url>' to compare with a specific run.")

	return nil
}

// formatIssueSummary formats the issue summary map into a short string.
func formatIssueSummary(summary map[string]int) string {
	if summary == nil {
		return "N/A"
	}

	var parts []string
	if v := summary["error"]; v > 0 {
		parts = append(parts, fmt.Sprintf("E:%d", v))
	}
	if v := summary["warning"]; v > 0 {
		parts = append(parts, fmt.Sprintf("W:%d", v))
	}
	if v := summary["info"]; v > 0 {
		parts = append(parts, fmt.Sprintf("I:%d", v))
	}

	if len(parts) == 0 {
		return noIssuesMessage
	}
	return strings.Join(parts, " ")
}

// runComparison compares two generation runs.
func runComparison(ctx context.Context, db *database.HistoryDB, target, withRunID string, jsonOutput bool) error {
	runs, err := db.ListRuns(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(runs) == 0 {
		return fmt.Errorf("no run history found for %s", target)
	}
	if len(runs) < 2 && withRunID == "" {
		return fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
	}

	// The latest run is always the current one
	current, err := db.GetRun(ctx, runs[0].ID)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", runs[0].ID, err)
	}
	if current == nil {
		return fmt.Errorf("run %s not found", runs[0].ID)
	}

	var previous *model.GenerationReport
	if withRunID != "" {
		previous, err = db.GetRun(ctx, withRunID)
		if err != nil {
			return fmt.Errorf("failed to load run %s: %w", withRunID, err)
		}
		if previous == nil {
			return fmt.Errorf("run %s not found", withRunID)
		}
		if previous.Target != target {
			return fmt.Errorf("run %s belongs to %s, not %s", withRunID, previous.Target, target)
		}
	} else {
		previous, err = db.GetRun(ctx, runs[1].ID)
		if err != nil {
			return fmt.Errorf("failed to load run %s: %w", runs[1].ID, err)
		}
		if previous == nil {
			return fmt.Errorf("run %s not found", runs[1].ID)
		}
	}

	comparison := compareRuns(previous, current)

	if jsonOutput {
		return outputComparisonJSON(comparison)
	}
	return outputComparisonText(comparison)
}

// ComparisonResult holds the result of comparing two generation runs.
type ComparisonResult struct {
	// Target is the site the runs generated sitemaps for.
	Target string `json:"target"`

	// PreviousRun contains metadata about the previous run.
	PreviousRun RunSummary `json:"previous_run"`

	// CurrentRun contains metadata about the current run.
	CurrentRun RunSummary `json:"current_run"`

	// AddedURLs lists URLs present in the current run but not the previous.
	AddedURLs []string `json:"added_urls,omitempty"`

	// RemovedURLs lists URLs present in the previous run but not the current.
	RemovedURLs []string `json:"removed_urls,omitempty"`

	// UnchangedCount is the number of URLs present in both runs.
	UnchangedCount int `json:"unchanged_count"`

	// Coverage describes the overall change in sitemap coverage.
	Coverage CoverageChange `json:"coverage"`
}

// RunSummary contains metadata about a run for comparison display.
type RunSummary struct {
	// RunID identifies the run.
	RunID string `json:"run_id"`

	// StartedAt is when the run started.
	StartedAt time.Time `json:"started_at"`

	// TotalURLs is the number of URLs in the generated sitemaps.
	TotalURLs int `json:"total_urls"`

	// PagesCrawled is the number of pages the crawler fetched.
	PagesCrawled int `json:"pages_crawled"`

	// SitemapFiles is the number of sitemap files written.
	SitemapFiles int `json:"sitemap_files"`

	// IssueCount is the total number of issues recorded.
	IssueCount int `json:"issue_count"`
}

// CoverageChange describes the change in sitemap coverage between runs.
type CoverageChange struct {
	// Direction is "grew", "shrank", or "unchanged".
	Direction string `json:"direction"`

	// URLDelta is the change in total URL count.
	URLDelta int `json:"url_delta"`

	// FileDelta is the change in sitemap file count.
	FileDelta int `json:"file_delta"`

	// IssueDelta is the change in issue count.
	IssueDelta int `json:"issue_delta"`
}

// compareRuns compares two generation runs URL by URL.
func compareRuns(previous, current *model.GenerationReport) *ComparisonResult {
	result := &ComparisonResult{
		Target:      current.Target,
		PreviousRun: summarizeRun(previous),
		CurrentRun:  summarizeRun(current),
	}

	previousLocs := make(map[string]bool, len(previous.URLs))
	for _, record := range previous.URLs {
		previousLocs[record.Loc] = true
	}
	currentLocs := make(map[string]bool, len(current.URLs))
	for _, record := range current.URLs {
		currentLocs[record.Loc] = true
	}

	for loc := range currentLocs {
		if !previousLocs[loc] {
			result.AddedURLs = append(result.AddedURLs, loc)
		}
	}
	for loc := range previousLocs {
		if currentLocs[loc] {
			result.UnchangedCount++
		} else {
			result.RemovedURLs = append(result.RemovedURLs, loc)
		}
	}

	sort.Strings(result.AddedURLs)
	sort.Strings(result.RemovedURLs)

	result.Coverage = CoverageChange{
		URLDelta:   result.CurrentRun.TotalURLs - result.PreviousRun.TotalURLs,
		FileDelta:  result.CurrentRun.SitemapFiles - result.PreviousRun.SitemapFiles,
		IssueDelta: result.CurrentRun.IssueCount - result.PreviousRun.IssueCount,
	}
	switch {
	case result.Coverage.URLDelta > 0:
		result.Coverage.Direction = coverageDirectionGrew
	case result.Coverage.URLDelta < 0:
		result.Coverage.Direction = coverageDirectionShrank
	default:
		result.Coverage.Direction = coverageDirectionUnchanged
	}

	return result
}

// summarizeRun extracts comparison metadata from a stored run.
func summarizeRun(run *model.GenerationReport) RunSummary {
	return RunSummary{
		RunID:        run.RunID,
		StartedAt:    run.StartedAt,
		TotalURLs:    len(run.URLs),
		PagesCrawled: run.PagesCrawled,
		SitemapFiles: len(run.SitemapFiles),
		IssueCount:   len(run.Issues),
	}
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(result *ComparisonResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonText outputs the comparison result in human-readable
// text format.
func outputComparisonText(result *ComparisonResult) error {
	fmt.Printf("Run Comparison: %s\n", result.Target)
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\nCoverage: %s\n", formatCoverageDirection(result.Coverage.Direction))

	fmt.Printf("\nPrevious run: %s (%s)\n",
		result.PreviousRun.StartedAt.Format("2006-01-02 15:04:05"), result.PreviousRun.RunID)
	fmt.Printf("Current run:  %s (%s)\n",
		result.CurrentRun.StartedAt.Format("2006-01-02 15:04:05"), result.CurrentRun.RunID)

	fmt.Println("\nRun Summary:")
	fmt.Printf("  %-14s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	fmt.Println("  " + strings.Repeat("-", 50))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "Total URLs",
		result.PreviousRun.TotalURLs, result.CurrentRun.TotalURLs,
		formatDelta(result.Coverage.URLDelta))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "Pages Crawled",
		result.PreviousRun.PagesCrawled, result.CurrentRun.PagesCrawled,
		formatDelta(result.CurrentRun.PagesCrawled-result.PreviousRun.PagesCrawled))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "Sitemap Files",
		result.PreviousRun.SitemapFiles, result.CurrentRun.SitemapFiles,
		formatDelta(result.Coverage.FileDelta))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "Issues",
		result.PreviousRun.IssueCount, result.CurrentRun.IssueCount,
		formatDelta(result.Coverage.IssueDelta))

	if len(result.AddedURLs) > 0 {
		fmt.Printf("\nAdded URLs (%d):\n", len(result.AddedURLs))
		for _, loc := range result.AddedURLs {
			fmt.Printf("  [+] %s\n", loc)
		}
	}

	if len(result.RemovedURLs) > 0 {
		fmt.Printf("\nRemoved URLs (%d):\n", len(result.RemovedURLs))
		for _, loc := range result.RemovedURLs {
			fmt.Printf("  [-] %s\n", loc)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Printf("\nUnchanged: %d URLs\n", result.UnchangedCount)
	}

	return nil
}

// formatCoverageDirection formats the coverage change direction for display.
func formatCoverageDirection(direction string) string {
	switch direction {
	case coverageDirectionGrew:
		return "GREW (more URLs than previous run)"
	case coverageDirectionShrank:
		return "SHRANK (fewer URLs than previous run)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}
