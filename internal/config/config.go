package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These match the behavior of the classic sitemap-generator scripts where
// applicable, so existing users get familiar output without flags.
const (
	// DefaultMaxURLsPerSitemap is the maximum number of URL entries per
	// sitemap file. 50000 is the hard limit of the sitemap protocol; files
	// exceeding it are rejected by search engines.
	DefaultMaxURLsPerSitemap = 50000

	// DefaultMaxCrawlPages bounds the number of pages fetched per run.
	// This prevents runaway crawling on large or infinitely-generating
	// sites. Users can raise it via the --max-crawl flag.
	DefaultMaxCrawlPages = 1000

	// DefaultOutputDir is where sitemap files are written.
	DefaultOutputDir = "sitemaps"

	// DefaultCrawlDepth limits how far the crawler follows links from the
	// seed URL. Ten levels is deeper than almost any real site hierarchy
	// while still terminating on pathological link structures.
	DefaultCrawlDepth = 10

	// DefaultCrawlDelay is the politeness delay between requests.
	// 500ms keeps a 1000-page crawl under ten minutes while staying
	// respectful of small servers.
	DefaultCrawlDelay = 500 * time.Millisecond

	// DefaultTimeout is the per-request timeout. Public web servers that
	// take longer than 15 seconds to answer are treated as unreachable.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxBodySize limits the response body size to read. 5MB is
	// sufficient for any real HTML page while preventing memory exhaustion
	// from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultBatchSize is the number of targets generated concurrently
	// when several seed URLs are given.
	DefaultBatchSize = 4

	// DefaultMaxRetries is the number of fetch attempts per URL.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the wait between fetch attempts.
	DefaultRetryDelay = 2 * time.Second

	// DefaultFrontierLimit caps the crawl queue. Once this many URLs are
	// waiting, newly discovered links are dropped rather than queued.
	DefaultFrontierLimit = 500

	// DefaultUserAgent identifies sitemapgen in HTTP requests. A
	// descriptive User-Agent lets site operators recognize the crawler in
	// their logs.
	DefaultUserAgent = "Mozilla/5.0 (compatible; sitemapgen/1.0; +https://github.com/sitemapgen/sitemapgen)"

	// AppName is the application name used for XDG directory paths.
	AppName = "sitemapgen"

	// MaxChildSitemaps caps how many child sitemaps of a sitemap index are
	// fetched during discovery, to avoid hammering sites with huge indexes.
	MaxChildSitemaps = 3
)

// Config holds all options for a generation run. It is populated from CLI
// flags and passed through the application via dependency injection rather
// than global state.
type Config struct {
	// Targets are the seed URLs to generate sitemaps for. Each target gets
	// its own crawl and its own set of sitemap files.
	Targets []string

	// MaxURLsPerSitemap is the maximum number of URL entries written to a
	// single sitemap file. Directories with more URLs are split into parts.
	MaxURLsPerSitemap int

	// MaxCrawlPages is the maximum number of pages the crawler fetches.
	MaxCrawlPages int

	// OutputDir is the directory sitemap files are written to. It is
	// created if missing. With multiple targets each target writes into a
	// host-named subdirectory.
	OutputDir string

	// CrawlDepth is the maximum link depth followed from the seed URL.
	CrawlDepth int

	// CrawlDelay is the politeness delay between requests.
	CrawlDelay time.Duration

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxRetries is the number of fetch attempts per URL before the URL
	// is recorded as a fetch failure.
	MaxRetries int

	// FrontierLimit caps the crawl queue. Once this many URLs are
	// waiting, newly discovered links are dropped rather than queued.
	FrontierLimit int

	// BatchSize is the number of targets processed concurrently.
	BatchSize int

	// SkipSitemapDiscovery disables probing robots.txt and well-known
	// locations for sitemaps the site already publishes.
	SkipSitemapDiscovery bool

	// SkipCrawl disables the crawl phase. Only existing sitemaps and the
	// essential URL list contribute entries.
	SkipCrawl bool

	// InsecureTLS skips TLS certificate verification. Off by default.
	InsecureTLS bool

	// Verbose enables debug-level log output.
	Verbose bool

	// ConfigFilePath is the path to the configuration file. If empty, the
	// tool searches for .sitemapgen in the current directory and then in
	// the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-site overrides loaded from the config file.
	SiteConfigs *File

	// JSONReport selects machine-readable JSON report output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile, when set, receives the report instead of stdout.
	ReportFile string

	// DBDir is the directory holding the SQLite history database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB controls whether the run is recorded in the history
	// database.
	SaveToDB bool
}

// NewConfig creates a Config with default values. Many defaults are
// non-zero, so relying on zero values would be error prone; this
// constructor also documents what the defaults are.
func NewConfig() *Config {
	return &Config{
		MaxURLsPerSitemap: DefaultMaxURLsPerSitemap,
		MaxCrawlPages:     DefaultMaxCrawlPages,
		OutputDir:         DefaultOutputDir,
		CrawlDepth:        DefaultCrawlDepth,
		CrawlDelay:        DefaultCrawlDelay,
		Timeout:           DefaultTimeout,
		MaxBodySize:       DefaultMaxBodySize,
		UserAgent:         DefaultUserAgent,
		MaxRetries:        DefaultMaxRetries,
		FrontierLimit:     DefaultFrontierLimit,
		BatchSize:         DefaultBatchSize,
	}
}

// XDGDataDir returns the XDG data directory for sitemapgen.
// On Linux: ~/.local/share/sitemapgen
// On macOS: ~/Library/Application Support/sitemapgen
// On Windows: %LOCALAPPDATA%\sitemapgen
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitemapgen.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns a sentinel error describing
// the first problem found. It is called once after CLI parsing, before any
// network activity.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.MaxURLsPerSitemap <= 0 {
		return ErrInvalidMaxURLs
	}
	if c.MaxCrawlPages <= 0 {
		return ErrInvalidMaxCrawl
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.SkipCrawl && c.SkipSitemapDiscovery {
		return ErrNothingToDiscover
	}
	return nil
}
