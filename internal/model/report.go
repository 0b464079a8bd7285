package model

import (
	"time"

	"github.com/google/uuid"
)

// GenerationReport accumulates everything a generation run discovers and
// produces. Pipeline steps append to it in sequence; report writers and the
// history database consume the final state.
type GenerationReport struct {
	// RunID uniquely identifies this generation run.
	RunID string `json:"run_id"`

	// Target is the normalized seed URL (scheme + host, no trailing slash).
	Target string `json:"target"`

	// OutputDir is the directory sitemap files were written to.
	OutputDir string `json:"output_dir"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// PagesCrawled is the number of pages fetched by the crawler.
	PagesCrawled int `json:"pages_crawled"`

	// ExistingSitemaps lists sitemap URLs the site already published.
	ExistingSitemaps []string `json:"existing_sitemaps,omitempty"`

	// URLs is the deduplicated set of records that go into the sitemaps.
	// Until the dedupe step runs it may contain duplicates.
	URLs []URLRecord `json:"urls"`

	// Pages holds the crawled pages, keyed for persistence. Only pages the
	// crawler actually fetched appear here; URLs from existing sitemaps or
	// the essential list have no page.
	Pages []*Page `json:"-"`

	// SitemapFiles lists the generated sitemap file names, relative to
	// OutputDir, in the order they appear in the index.
	SitemapFiles []string `json:"sitemap_files,omitempty"`

	// IndexFile is the generated sitemap index file name, if any.
	IndexFile string `json:"index_file,omitempty"`

	// DirectoryCounts maps top-level directory to the number of URLs
	// grouped under it.
	DirectoryCounts map[string]int `json:"directory_counts,omitempty"`

	// CategoryCounts maps category to the number of URLs assigned to it.
	CategoryCounts map[string]int `json:"category_counts,omitempty"`

	// Issues collects problems observed during the run.
	Issues []Issue `json:"issues,omitempty"`

	// PerformedSteps names the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Cancelled is true when the run was interrupted and the report holds
	// partial results.
	Cancelled bool `json:"cancelled,omitempty"`

	// Error holds the terminal error of the run, if any.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewGenerationReport creates a report for the given normalized target URL.
func NewGenerationReport(target string) *GenerationReport {
	return &GenerationReport{
		RunID:           uuid.NewString(),
		Target:          target,
		StartedAt:       time.Now(),
		URLs:            make([]URLRecord, 0),
		DirectoryCounts: make(map[string]int),
		CategoryCounts:  make(map[string]int),
	}
}

// AddURL appends a record to the report.
func (r *GenerationReport) AddURL(rec URLRecord) {
	r.URLs = append(r.URLs, rec)
}

// AddIssue appends an issue to the report.
func (r *GenerationReport) AddIssue(issue Issue) {
	r.Issues = append(r.Issues, issue)
}

// IssuesBySeverity returns all issues of the given severity, in the order
// they were recorded.
func (r *GenerationReport) IssuesBySeverity(sev Severity) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			out = append(out, issue)
		}
	}
	return out
}

// CountIssues returns the number of issues of the given severity.
func (r *GenerationReport) CountIssues(sev Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			n++
		}
	}
	return n
}

// Duration returns the elapsed time of the run. If the run has not finished
// it measures up to now.
func (r *GenerationReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
