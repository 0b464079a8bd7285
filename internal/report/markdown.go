package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sitemapgen/sitemapgen/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter

	// titleCaser formats directory and category names for headings.
	titleCaser cases.Caser
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		titleCaser: cases.Title(language.English),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.GenerationReport) (int, error) {
	return w.WriteSummary(model.NewSummaryReport(report))
}

// WriteSummary outputs the summary in Markdown format.
func (w *MarkdownWriter) WriteSummary(summary *model.SummaryReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeBreakdowns(md, summary)
	w.writeFiles(md, summary)
	w.writeIssues(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.SummaryReport) {
	md.H1("Sitemap Generation Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Website", "`" + summary.Target + "`"},
			{"Generated", summary.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Total URLs", strconv.Itoa(summary.TotalURLs)},
			{"Pages Crawled", strconv.Itoa(summary.PagesCrawled)},
			{"Sitemap Files", strconv.Itoa(summary.SitemapFiles)},
			{"Status", w.statusText(summary)},
		},
	})
	md.PlainText("")
}

// statusText returns the status text based on run state.
func (w *MarkdownWriter) statusText(summary *model.SummaryReport) string {
	if summary.Cancelled {
		return "⚠️ Cancelled (partial results)"
	}
	if summary.Error != "" {
		return "❌ Error - " + summary.Error
	}
	return "✅ Complete"
}

// writeBreakdowns writes the directory and category breakdown sections.
func (w *MarkdownWriter) writeBreakdowns(md *markdown.Markdown, summary *model.SummaryReport) {
	md.H2("Directory Breakdown")
	md.PlainText("")

	if len(summary.Directories) == 0 {
		md.PlainText("No URLs were grouped.")
		md.PlainText("")
	} else {
		rows := make([][]string, 0, len(summary.Directories))
		for _, dir := range summary.Directories {
			rows = append(rows, []string{w.titleCaser.String(dir.Name), strconv.Itoa(dir.Count)})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Directory", "URLs"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(summary.Categories) > 0 {
		w.writePieChart(md, summary)
	}
}

// writePieChart writes a mermaid pie chart of the category distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.SummaryReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("URL Category Distribution"),
		piechart.WithShowData(true),
	)

	for _, cat := range summary.Categories {
		if cat.Count > 0 {
			chart.LabelAndIntValue(w.titleCaser.String(cat.Name), uint64(cat.Count))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFiles writes the generated file listing.
func (w *MarkdownWriter) writeFiles(md *markdown.Markdown, summary *model.SummaryReport) {
	md.H2("Generated Files")
	md.PlainText("")

	if summary.IndexFile == "" {
		md.PlainText("No sitemap index was written.")
		md.PlainText("")
		return
	}

	md.PlainTextf("Sitemap index: `%s/%s`", summary.Target, summary.IndexFile)
	md.PlainText("")
	md.PlainTextf("Output directory: `%s` (%d sitemap files)", summary.OutputDir, summary.SitemapFiles)
	md.PlainText("")
}

// writeIssues writes the issue summary with an alert matched to severity.
func (w *MarkdownWriter) writeIssues(md *markdown.Markdown, summary *model.SummaryReport) {
	md.H2("Issues")
	md.PlainText("")

	switch {
	case summary.ErrorCount > 0:
		md.Cautionf("%d error(s) occurred; parts of the run were abandoned.", summary.ErrorCount)
	case summary.WarningCount > 0:
		md.Warningf("%d warning(s) may have reduced sitemap completeness.", summary.WarningCount)
	case summary.InfoCount > 0:
		md.Note("Only informational notices were recorded.")
	default:
		md.Tip("No issues were recorded during generation.")
	}
	md.PlainText("")

	if !summary.HasIssues() {
		return
	}

	rows := make([][]string, 0, len(summary.Issues))
	for _, issue := range summary.Issues {
		location := issue.Location
		if location == "" {
			location = "-"
		}
		detail := issue.Detail
		if detail == "" {
			detail = "-"
		}
		rows = append(rows, []string{
			issue.SeverityText,
			issue.Type,
			truncateString(location, 60),
			truncateString(detail, 60),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Type", "Location", "Detail"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [sitemapgen](https://github.com/sitemapgen/sitemapgen)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
