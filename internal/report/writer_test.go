package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sitemapgen/sitemapgen/internal/model"
)

func sampleReport() *model.GenerationReport {
	report := model.NewGenerationReport("https://example.com")
	report.RunID = "run-test"
	report.OutputDir = "sitemaps"
	report.StartedAt = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	report.FinishedAt = time.Date(2024, 6, 1, 10, 3, 0, 0, time.UTC)
	report.PagesCrawled = 42
	report.SitemapFiles = []string{"sitemap.xml", "sitemap-blog.xml"}
	report.IndexFile = "sitemap_index.xml"
	report.DirectoryCounts = map[string]int{"homepage": 1, "blog": 10}
	report.CategoryCounts = map[string]int{"homepage": 1, "articles": 10}
	report.AddURL(model.URLRecord{Loc: "https://example.com/", Priority: 1.0, Category: model.CategoryHomepage})
	report.AddIssue(model.NewIssue(model.IssueBrokenLink, "https://example.com/gone", "status 404"))
	return report
}

func TestJSONWriter_Write(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewJSONWriter(&buf)

	n, err := w.Write(sampleReport())
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != buf.Len() {
		t.Errorf("returned %d bytes, buffer has %d", n, buf.Len())
	}

	var decoded model.GenerationReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Target != "https://example.com" {
		t.Errorf("target = %q", decoded.Target)
	}
	if len(decoded.Issues) != 1 {
		t.Errorf("issues = %d", len(decoded.Issues))
	}
}

func TestJSONWriter_PrettyPrint(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewJSONWriter(&buf, WithPrettyPrint())

	if _, err := w.Write(sampleReport()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  \"") {
		t.Error("expected indented output")
	}
}

func TestFullJSONWriter_Write(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewFullJSONWriter(&buf, "1.2.3")

	if _, err := w.Write(sampleReport()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var wrapped JSONReport
	if err := json.Unmarshal(buf.Bytes(), &wrapped); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if wrapped.Version != "1.2.3" {
		t.Errorf("version = %q", wrapped.Version)
	}
	if wrapped.Summary == nil || wrapped.Summary.TotalURLs != 1 {
		t.Errorf("summary = %+v", wrapped.Summary)
	}
}

func TestSimpleWriter_Write(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewSimpleWriter(&buf)

	if _, err := w.Write(sampleReport()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"SITEMAP GENERATION COMPLETED",
		"https://example.com",
		"Total URLs:     1",
		"Pages Crawled:  42",
		"Sitemap Files:  2",
		"DIRECTORY BREAKDOWN",
		"blog",
		"WARNINGS: 1",
		"Submit to Google Search Console: https://example.com/sitemap_index.xml",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestSimpleWriter_Verbose(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewSimpleWriter(&buf, WithVerbose(true))

	if _, err := w.Write(sampleReport()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "broken_link") {
		t.Errorf("verbose output missing issue type:\n%s", output)
	}
	if !strings.Contains(output, "https://example.com/gone") {
		t.Errorf("verbose output missing issue location:\n%s", output)
	}
}

func TestSimpleWriter_ErrorStatus(t *testing.T) {
	t.Parallel()

	report := sampleReport()
	report.ErrorMessage = "crawl failed"

	var buf bytes.Buffer
	if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !strings.Contains(buf.String(), "ERROR - crawl failed") {
		t.Errorf("missing error status:\n%s", buf.String())
	}
}

func TestMarkdownWriter_Write(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewMarkdownWriter(&buf)

	if _, err := w.Write(sampleReport()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"# Sitemap Generation Report",
		"## Directory Breakdown",
		"| Directory | URLs |",
		"```mermaid",
		"pie",
		"## Issues",
		"broken_link",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestMarkdownWriter_NoIssues(t *testing.T) {
	t.Parallel()

	report := sampleReport()
	report.Issues = nil

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No issues were recorded") {
		t.Errorf("missing no-issue tip:\n%s", buf.String())
	}
}

func TestMultiWriter_Write(t *testing.T) {
	t.Parallel()

	var jsonBuf, textBuf bytes.Buffer
	mw := NewMultiWriter(NewJSONWriter(&jsonBuf), NewSimpleWriter(&textBuf))

	n, err := mw.Write(sampleReport())
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != jsonBuf.Len()+textBuf.Len() {
		t.Errorf("total = %d, want %d", n, jsonBuf.Len()+textBuf.Len())
	}
	if jsonBuf.Len() == 0 || textBuf.Len() == 0 {
		t.Error("one of the writers received no output")
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short", "abc", 10, "abc"},
		{"exact", "abcde", 5, "abcde"},
		{"truncated", "abcdefghij", 8, "abcde..."},
		{"tiny max", "abcdef", 2, "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := truncateString(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}
