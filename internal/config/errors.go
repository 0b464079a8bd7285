package config

import "errors"

// Configuration validation errors returned by Config.Validate().
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoTarget is returned when no seed URL is given.
	ErrNoTarget = errors.New("no target specified: provide at least one site URL")

	// ErrInvalidMaxURLs is returned when the per-file URL cap is not positive.
	ErrInvalidMaxURLs = errors.New("invalid max urls per sitemap: must be positive")

	// ErrInvalidMaxCrawl is returned when the crawl page cap is not positive.
	ErrInvalidMaxCrawl = errors.New("invalid max crawl pages: must be positive")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	// Use 0 for no delay between requests.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the body size limit is
	// negative. Use 0 for the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrNothingToDiscover is returned when both the crawl and the
	// sitemap discovery are disabled, which would leave only the
	// essential URL list as input.
	ErrNothingToDiscover = errors.New("both crawling and sitemap discovery are disabled: nothing to discover")
)
