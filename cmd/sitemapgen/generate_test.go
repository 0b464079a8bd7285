package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sitemapgen/sitemapgen/internal/classify"
	"github.com/sitemapgen/sitemapgen/internal/config"
	applog "github.com/sitemapgen/sitemapgen/internal/log"
)

// TestNewGenerateCmd tests the generate command creation.
func TestNewGenerateCmd(t *testing.T) {
	t.Parallel()

	cmd := NewGenerateCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "generate [site-url...]" {
			t.Errorf("expected use 'generate [site-url...]', got %q", cmd.Use)
		}
	})

	t.Run("has expected flags with defaults", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name     string
			defValue string
		}{
			{"max-urls", "50000"},
			{"max-crawl", "1000"},
			{"output-dir", "sitemaps"},
			{"depth", "10"},
			{"delay", "500ms"},
			{"timeout", "15s"},
			{"batch", "4"},
			{"skip-sitemaps", "false"},
			{"skip-crawl", "false"},
			{"insecure", "false"},
			{"json", "false"},
			{"markdown", "false"},
		}

		for _, tt := range tests {
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Errorf("expected flag %q", tt.name)
				continue
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("flag %q: expected default %q, got %q", tt.name, tt.defValue, flag.DefValue)
			}
		}
	})
}

// TestNormalizeTarget tests site URL normalization.
func TestNormalizeTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare domain gets https scheme",
			input: "example.com",
			want:  "https://example.com",
		},
		{
			name:  "path and trailing slash are stripped",
			input: "http://example.com/blog/",
			want:  "http://example.com",
		},
		{
			name:  "host is lowercased",
			input: "https://EXAMPLE.com",
			want:  "https://example.com",
		},
		{
			name:  "port is preserved",
			input: "example.com:8080",
			want:  "https://example.com:8080",
		},
		{
			name:  "surrounding whitespace is trimmed",
			input: "  example.com  ",
			want:  "https://example.com",
		},
		{
			name:    "empty input fails",
			input:   "",
			wantErr: true,
		},
		{
			name:    "unsupported scheme fails",
			input:   "ftp://example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := normalizeTarget(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("normalizeTarget(%q): expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalizeTarget(%q): unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("normalizeTarget(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestBuildConfig tests config construction from command flags.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("applies defaults", func(t *testing.T) {
		t.Parallel()

		cmd := NewGenerateCmd()
		if err := cmd.ParseFlags([]string{}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.MaxURLsPerSitemap != config.DefaultMaxURLsPerSitemap {
			t.Errorf("expected default max urls, got %d", cfg.MaxURLsPerSitemap)
		}
		if cfg.OutputDir != config.DefaultOutputDir {
			t.Errorf("expected default output dir, got %q", cfg.OutputDir)
		}
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB enabled by default")
		}
		if len(cfg.Targets) != 1 || cfg.Targets[0] != "https://example.com" {
			t.Errorf("expected normalized target, got %v", cfg.Targets)
		}
	})

	t.Run("applies flag values", func(t *testing.T) {
		t.Parallel()

		cmd := NewGenerateCmd()
		err := cmd.ParseFlags([]string{
			"--max-urls", "100",
			"--max-crawl", "50",
			"--delay", "0s",
			"--skip-crawl",
			"--json",
		})
		if err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.MaxURLsPerSitemap != 100 {
			t.Errorf("expected max urls 100, got %d", cfg.MaxURLsPerSitemap)
		}
		if cfg.MaxCrawlPages != 50 {
			t.Errorf("expected max crawl 50, got %d", cfg.MaxCrawlPages)
		}
		if cfg.CrawlDelay != 0 {
			t.Errorf("expected zero delay, got %v", cfg.CrawlDelay)
		}
		if !cfg.SkipCrawl {
			t.Error("expected SkipCrawl enabled")
		}
		if !cfg.JSONReport {
			t.Error("expected JSONReport enabled")
		}
	})

	t.Run("rejects invalid target", func(t *testing.T) {
		t.Parallel()

		cmd := NewGenerateCmd()
		if err := cmd.ParseFlags([]string{}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		if _, err := buildConfig(cmd, []string{"ftp://example.com"}); err == nil {
			t.Error("expected error for unsupported scheme")
		}
	})

	t.Run("rejects missing explicit config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewGenerateCmd()
		err := cmd.ParseFlags([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml")})
		if err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		if _, err := buildConfig(cmd, []string{"example.com"}); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}

// TestOutputDirFor tests per-target output directory selection.
func TestOutputDirFor(t *testing.T) {
	t.Parallel()

	t.Run("single target uses output dir directly", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.Targets = []string{"https://example.com"}
		cfg.OutputDir = "sitemaps"

		if got := outputDirFor(cfg, "https://example.com"); got != "sitemaps" {
			t.Errorf("expected 'sitemaps', got %q", got)
		}
	})

	t.Run("multiple targets get host subdirectories", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.Targets = []string{"https://one.example.com", "https://two.example.com:8443"}
		cfg.OutputDir = "sitemaps"

		if got := outputDirFor(cfg, "https://one.example.com"); got != filepath.Join("sitemaps", "one.example.com") {
			t.Errorf("unexpected dir %q", got)
		}
		if got := outputDirFor(cfg, "https://two.example.com:8443"); got != filepath.Join("sitemaps", "two.example.com_8443") {
			t.Errorf("unexpected dir %q", got)
		}
	})
}

// TestSiteConfigFor tests site override lookup by bare host.
func TestSiteConfigFor(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.SiteConfigs = &config.File{
		Sites: map[string]config.SiteConfig{
			"example.com": {Cookie: "session=abc", Depth: 3},
		},
		Defaults: config.SiteConfig{DelayMillis: 200},
	}

	site := siteConfigFor(cfg, "https://example.com")
	if site.Cookie != "session=abc" {
		t.Errorf("expected site cookie, got %q", site.Cookie)
	}
	if site.Depth != 3 {
		t.Errorf("expected site depth 3, got %d", site.Depth)
	}
	if site.DelayMillis != 200 {
		t.Errorf("expected default delay carried over, got %d", site.DelayMillis)
	}

	other := siteConfigFor(cfg, "https://other.example.com")
	if other.Cookie != "" {
		t.Errorf("expected no cookie for unknown host, got %q", other.Cookie)
	}
	if other.DelayMillis != 200 {
		t.Errorf("expected defaults for unknown host, got %d", other.DelayMillis)
	}
}

// TestRunGenerateEndToEnd runs a full generation against a local test
// server and checks the produced files.
func TestRunGenerateEndToEnd(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, "User-agent: *\nSitemap: %s/sitemap.xml\n", server.URL)
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%s/archive</loc><lastmod>2024-03-01</lastmod></url>
</urlset>`, server.URL)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>Home</title></head><body><a href="/blog/first">First</a></body></html>`)
	})
	mux.HandleFunc("/blog/first", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>First</title></head><body></body></html>`)
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	outputDir := t.TempDir()

	cfg := config.NewConfig()
	cfg.Targets = []string{server.URL}
	cfg.OutputDir = outputDir
	cfg.CrawlDelay = 0
	cfg.Timeout = 5 * time.Second
	cfg.Verbose = true // no spinner in tests
	cfg.SaveToDB = true
	cfg.DBDir = t.TempDir()
	cfg.ReportFile = filepath.Join(t.TempDir(), "report.txt")
	cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}

	logger := applog.NewLogger(io.Discard, false)

	if err := runGenerate(context.Background(), cfg, logger); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	indexPath := filepath.Join(outputDir, "sitemap_index.xml")
	indexContent, err := os.ReadFile(indexPath)
	if err != nil {
		t.Fatalf("expected sitemap index written: %v", err)
	}
	if !strings.Contains(string(indexContent), "<sitemapindex") {
		t.Error("expected sitemapindex element in index file")
	}

	homepage, err := os.ReadFile(filepath.Join(outputDir, "sitemap.xml"))
	if err != nil {
		t.Fatalf("expected homepage sitemap written: %v", err)
	}
	if !strings.Contains(string(homepage), server.URL+"/") {
		t.Error("expected homepage URL in sitemap")
	}

	reportContent, err := os.ReadFile(cfg.ReportFile)
	if err != nil {
		t.Fatalf("expected report written: %v", err)
	}
	if !strings.Contains(string(reportContent), "SITEMAP GENERATION COMPLETED") {
		t.Error("expected report header in report file")
	}
	if !strings.Contains(string(reportContent), server.URL) {
		t.Error("expected target in report")
	}
}

// TestBuildSpiderExcludedLinks checks that links the classifier rejects,
// such as auth endpoints and binary assets, are never fetched.
func TestBuildSpiderExcludedLinks(t *testing.T) {
	t.Parallel()

	var logoutHits, pdfHits, aboutHits atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
<a href="/about">About</a>
<a href="/logout">Logout</a>
<a href="/file.pdf">Download</a>
</body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		aboutHits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>About</body></html>`)
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, _ *http.Request) {
		logoutHits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>Logged out</body></html>`)
	})
	mux.HandleFunc("/file.pdf", func(w http.ResponseWriter, _ *http.Request) {
		pdfHits.Add(1)
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4")
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := config.NewConfig()
	cfg.CrawlDelay = 0

	logger := applog.NewLogger(io.Discard, false)
	spider := buildSpider(cfg, server.Client(), logger, config.SiteConfig{}, classify.New(server.URL))

	pages, err := spider.Crawl(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	if len(pages) != 2 {
		t.Errorf("expected 2 pages (homepage and about), got %d", len(pages))
	}
	if got := aboutHits.Load(); got != 1 {
		t.Errorf("expected about fetched once, got %d", got)
	}
	if got := logoutHits.Load(); got != 0 {
		t.Errorf("expected logout never fetched, got %d hits", got)
	}
	if got := pdfHits.Load(); got != 0 {
		t.Errorf("expected pdf never fetched, got %d hits", got)
	}
}

// TestBuildSpiderFrontierLimit checks that the configured frontier cap
// reaches the spider.
func TestBuildSpiderFrontierLimit(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.URL.Path != "/" {
			fmt.Fprint(w, `<html><body>Page</body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body>
<a href="/one">One</a>
<a href="/two">Two</a>
<a href="/three">Three</a>
</body></html>`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := config.NewConfig()
	cfg.CrawlDelay = 0
	cfg.FrontierLimit = 1

	logger := applog.NewLogger(io.Discard, false)
	spider := buildSpider(cfg, server.Client(), logger, config.SiteConfig{}, classify.New(server.URL))

	pages, err := spider.Crawl(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	// The homepage plus the single link that fit in the frontier.
	if len(pages) != 2 {
		t.Errorf("expected 2 pages with frontier limit 1, got %d", len(pages))
	}
}

// TestBuildSpiderRetries checks that the configured attempt count
// reaches the spider.
func TestBuildSpiderRetries(t *testing.T) {
	t.Parallel()

	var brokenHits atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><a href="/broken">Broken</a></body></html>`)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		brokenHits.Add(1)
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("response writer does not support hijacking")
			return
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Errorf("hijack failed: %v", err)
			return
		}
		conn.Close()
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := config.NewConfig()
	cfg.CrawlDelay = 0
	cfg.MaxRetries = 1

	// Keep-alive reuse lets the transport silently replay a request
	// whose idle connection died, which would distort the hit count.
	client := server.Client()
	client.Transport.(*http.Transport).DisableKeepAlives = true

	logger := applog.NewLogger(io.Discard, false)
	spider := buildSpider(cfg, client, logger, config.SiteConfig{}, classify.New(server.URL))

	if _, err := spider.Crawl(context.Background(), server.URL+"/"); err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	if got := brokenHits.Load(); got != 1 {
		t.Errorf("expected a single fetch attempt, got %d", got)
	}
}
