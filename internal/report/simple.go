package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sitemapgen/sitemapgen/internal/model"
)

// maxBreakdownRows caps the directory breakdown in the console summary.
const maxBreakdownRows = 8

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display: an executive summary
// with URL statistics, a directory breakdown, and next steps.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose enables the full issue listing in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with the full issue listing.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in human-readable format.
func (w *SimpleWriter) Write(report *model.GenerationReport) (int, error) {
	return w.WriteSummary(model.NewSummaryReport(report))
}

// WriteSummary outputs the summary in human-readable format.
func (w *SimpleWriter) WriteSummary(summary *model.SummaryReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeStatistics(&sb, summary)
	w.writeBreakdown(&sb, summary)
	w.writeIssues(&sb, summary)
	w.writeNextSteps(&sb, summary)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.SummaryReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                    SITEMAP GENERATION COMPLETED\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Website:        %s\n", summary.Target))
	if !summary.GeneratedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Generated:      %s\n", summary.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	}
	sb.WriteString(fmt.Sprintf("Elapsed:        %s\n", summary.Elapsed.Round(time.Millisecond)))

	switch {
	case summary.Cancelled:
		sb.WriteString("Status:         CANCELLED (partial results)\n")
	case summary.Error != "":
		sb.WriteString(fmt.Sprintf("Status:         ERROR - %s\n", summary.Error))
	default:
		sb.WriteString("Status:         Complete\n")
	}

	sb.WriteString("\n")
}

// writeStatistics writes the URL statistics section.
func (w *SimpleWriter) writeStatistics(sb *strings.Builder, summary *model.SummaryReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("EXECUTIVE SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  Total URLs:     %d\n", summary.TotalURLs))
	sb.WriteString(fmt.Sprintf("  Pages Crawled:  %d\n", summary.PagesCrawled))
	sb.WriteString(fmt.Sprintf("  Directories:    %d\n", len(summary.Directories)))
	sb.WriteString(fmt.Sprintf("  Categories:     %d\n", len(summary.Categories)))
	sb.WriteString(fmt.Sprintf("  Sitemap Files:  %d\n", summary.SitemapFiles))
	sb.WriteString("\n")
}

// writeBreakdown writes the directory breakdown, largest first.
func (w *SimpleWriter) writeBreakdown(sb *strings.Builder, summary *model.SummaryReport) {
	if len(summary.Directories) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("DIRECTORY BREAKDOWN\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(summary.Directories) == 0 {
		sb.WriteString("  No directories\n\n")
		return
	}

	rows := summary.Directories
	if len(rows) > maxBreakdownRows {
		rows = rows[:maxBreakdownRows]
	}
	for _, dir := range rows {
		sb.WriteString(fmt.Sprintf("  %-24s %6d URLs\n", dir.Name, dir.Count))
	}
	if len(summary.Directories) > maxBreakdownRows {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(summary.Directories)-maxBreakdownRows))
	}
	sb.WriteString("\n")
}

// writeIssues writes the issue summary and, in verbose mode, each issue.
func (w *SimpleWriter) writeIssues(sb *strings.Builder, summary *model.SummaryReport) {
	if !summary.HasIssues() && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("ISSUES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  ERRORS:   %d\n", summary.ErrorCount))
	sb.WriteString(fmt.Sprintf("  WARNINGS: %d\n", summary.WarningCount))
	sb.WriteString(fmt.Sprintf("  INFO:     %d\n", summary.InfoCount))
	sb.WriteString("\n")

	if !w.verbose {
		return
	}

	for _, sev := range []model.Severity{model.SeverityError, model.SeverityWarning, model.SeverityInfo} {
		for _, issue := range summary.Issues {
			if issue.Severity != sev {
				continue
			}
			sb.WriteString(fmt.Sprintf("  [%s] %s\n", issue.SeverityText, issue.Type))
			if issue.Location != "" {
				sb.WriteString(fmt.Sprintf("    Location: %s\n", issue.Location))
			}
			if issue.Detail != "" {
				sb.WriteString(fmt.Sprintf("    Detail:   %s\n", issue.Detail))
			}
		}
	}
	sb.WriteString("\n")
}

// writeNextSteps writes submission guidance and closes the report.
func (w *SimpleWriter) writeNextSteps(sb *strings.Builder, summary *model.SummaryReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("NEXT STEPS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if summary.IndexFile != "" {
		sb.WriteString(fmt.Sprintf("  1. Submit to Google Search Console: %s/%s\n", summary.Target, summary.IndexFile))
		sb.WriteString(fmt.Sprintf("  2. Review the generated files in %s\n", summary.OutputDir))
	} else {
		sb.WriteString("  Review the run issues above; no sitemap index was written.\n")
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
