package generator

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sitemapgen/sitemapgen/internal/model"
	"github.com/sitemapgen/sitemapgen/internal/sitemap"
)

func record(loc string, priority float64) model.URLRecord {
	return model.URLRecord{
		Loc:        loc,
		LastMod:    time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		ChangeFreq: model.ChangeFreqWeekly,
		Priority:   priority,
	}
}

func readURLSet(t *testing.T, path string) *sitemap.URLSet {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var set sitemap.URLSet
	if err := xml.Unmarshal(data, &set); err != nil {
		t.Fatalf("unmarshal %s: %v", path, err)
	}
	return &set
}

func TestGenerator_Generate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	g := New("https://example.com", dir)

	records := []model.URLRecord{
		record("https://example.com/", 1.0),
		record("https://example.com/blog/first", 0.8),
		record("https://example.com/blog/second", 0.8),
		record("https://example.com/docs/install", 0.7),
	}

	result, err := g.Generate(records)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	wantFiles := []string{"sitemap.xml", "sitemap-blog.xml", "sitemap-docs.xml"}
	if len(result.Files) != len(wantFiles) {
		t.Fatalf("files = %v, want %v", result.Files, wantFiles)
	}
	for i, want := range wantFiles {
		if result.Files[i] != want {
			t.Errorf("files[%d] = %q, want %q", i, result.Files[i], want)
		}
	}

	if result.IndexFile != IndexFileName {
		t.Errorf("index file = %q", result.IndexFile)
	}
	if result.DirectoryCounts["blog"] != 2 {
		t.Errorf("blog count = %d", result.DirectoryCounts["blog"])
	}

	set := readURLSet(t, filepath.Join(dir, "sitemap-blog.xml"))
	if len(set.URLs) != 2 {
		t.Fatalf("blog sitemap has %d URLs", len(set.URLs))
	}
	if set.URLs[0].Loc != "https://example.com/blog/first" {
		t.Errorf("first blog URL = %q", set.URLs[0].Loc)
	}
	if set.URLs[0].LastMod != "2024-05-01" {
		t.Errorf("lastmod = %q", set.URLs[0].LastMod)
	}

	// Index references every file by absolute URL.
	data, err := os.ReadFile(filepath.Join(dir, IndexFileName))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	var idx sitemap.Index
	if err := xml.Unmarshal(data, &idx); err != nil {
		t.Fatalf("unmarshal index: %v", err)
	}
	if len(idx.Sitemaps) != 3 {
		t.Fatalf("index has %d entries", len(idx.Sitemaps))
	}
	if idx.Sitemaps[0].Loc != "https://example.com/sitemap.xml" {
		t.Errorf("index entry = %q", idx.Sitemaps[0].Loc)
	}

	if !strings.HasPrefix(string(data), xml.Header) {
		t.Error("missing XML declaration")
	}
}

func TestGenerator_Generate_Splitting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	g := New("https://example.com", dir, WithMaxURLsPerFile(10))

	records := make([]model.URLRecord, 0, 25)
	for i := 0; i < 25; i++ {
		records = append(records, record(fmt.Sprintf("https://example.com/docs/page-%02d", i), 0.7))
	}

	result, err := g.Generate(records)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	wantFiles := []string{
		"sitemap-docs-part1.xml",
		"sitemap-docs-part2.xml",
		"sitemap-docs-part3.xml",
	}
	if len(result.Files) != len(wantFiles) {
		t.Fatalf("files = %v", result.Files)
	}
	for i, want := range wantFiles {
		if result.Files[i] != want {
			t.Errorf("files[%d] = %q, want %q", i, result.Files[i], want)
		}
	}

	part3 := readURLSet(t, filepath.Join(dir, "sitemap-docs-part3.xml"))
	if len(part3.URLs) != 5 {
		t.Errorf("last part has %d URLs, want 5", len(part3.URLs))
	}
}

func TestGenerator_Generate_Empty(t *testing.T) {
	t.Parallel()

	g := New("https://example.com", t.TempDir())
	if _, err := g.Generate(nil); err == nil {
		t.Error("expected error for empty record set")
	}
}

func TestGenerator_Generate_CreatesOutputDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "sitemaps")
	g := New("https://example.com", dir)

	if _, err := g.Generate([]model.URLRecord{record("https://example.com/", 1.0)}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sitemap.xml")); err != nil {
		t.Errorf("sitemap.xml not written: %v", err)
	}
}

func TestFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dir  string
		want string
	}{
		{"homepage", "sitemap.xml"},
		{"blog", "sitemap-blog.xml"},
		{"Über Uns", "sitemap-beruns.xml"},
		{"!!!", "sitemap-other.xml"},
	}

	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			t.Parallel()

			if got := fileName(tt.dir); got != tt.want {
				t.Errorf("fileName(%q) = %q, want %q", tt.dir, got, tt.want)
			}
		})
	}
}
