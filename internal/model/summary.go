package model

import (
	"sort"
	"time"
)

// SummaryReport is a condensed view of a GenerationReport, shaped for the
// console and markdown writers.
//
// Design decision: We derive the summary from the full report rather than
// building it incrementally because:
// 1. Writers only need aggregate counts, not every record
// 2. It can be regenerated from a report loaded out of the database
// 3. It keeps the pipeline steps free of presentation concerns
type SummaryReport struct {
	// Target is the site the sitemaps were generated for.
	Target string `json:"target"`

	// OutputDir is where the sitemap files were written.
	OutputDir string `json:"output_dir"`

	// GeneratedAt is when the run finished.
	GeneratedAt time.Time `json:"generated_at"`

	// Elapsed is the total duration of the run.
	Elapsed time.Duration `json:"elapsed"`

	// TotalURLs is the number of unique URLs in the sitemaps.
	TotalURLs int `json:"total_urls"`

	// PagesCrawled is the number of pages fetched.
	PagesCrawled int `json:"pages_crawled"`

	// SitemapFiles is the number of generated sitemap files.
	SitemapFiles int `json:"sitemap_files"`

	// IndexFile is the sitemap index file name, if one was written.
	IndexFile string `json:"index_file,omitempty"`

	// Directories is the per-directory URL breakdown, largest first.
	Directories []DirectoryCount `json:"directories,omitempty"`

	// Categories is the per-category URL breakdown, largest first.
	Categories []DirectoryCount `json:"categories,omitempty"`

	// WarningCount and InfoCount summarize the run's issues.
	WarningCount int `json:"warning_count"`
	InfoCount    int `json:"info_count"`
	ErrorCount   int `json:"error_count"`

	// Issues carries the full issue list for detailed output.
	Issues []Issue `json:"issues,omitempty"`

	// Cancelled signals partial results.
	Cancelled bool `json:"cancelled,omitempty"`

	// Error is the terminal error message, if the run failed.
	Error string `json:"error,omitempty"`
}

// DirectoryCount pairs a name with a URL count for breakdown tables.
type DirectoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// NewSummaryReport condenses a GenerationReport.
func NewSummaryReport(report *GenerationReport) *SummaryReport {
	s := &SummaryReport{
		Target:       report.Target,
		OutputDir:    report.OutputDir,
		GeneratedAt:  report.FinishedAt,
		Elapsed:      report.Duration(),
		TotalURLs:    len(report.URLs),
		PagesCrawled: report.PagesCrawled,
		SitemapFiles: len(report.SitemapFiles),
		IndexFile:    report.IndexFile,
		Directories:  sortedCounts(report.DirectoryCounts),
		Categories:   sortedCounts(report.CategoryCounts),
		WarningCount: report.CountIssues(SeverityWarning),
		InfoCount:    report.CountIssues(SeverityInfo),
		ErrorCount:   report.CountIssues(SeverityError),
		Issues:       report.Issues,
		Cancelled:    report.Cancelled,
	}
	if report.Error != nil {
		s.Error = report.Error.Error()
	} else if report.ErrorMessage != "" {
		s.Error = report.ErrorMessage
	}
	return s
}

// HasIssues reports whether the run recorded any issues.
func (s *SummaryReport) HasIssues() bool {
	return s.WarningCount+s.InfoCount+s.ErrorCount > 0
}

// sortedCounts flattens a count map into a slice sorted by count descending,
// ties broken by name for deterministic output.
func sortedCounts(m map[string]int) []DirectoryCount {
	out := make([]DirectoryCount, 0, len(m))
	for name, count := range m {
		out = append(out, DirectoryCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
