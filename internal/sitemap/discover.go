package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/net/html/charset"

	"github.com/sitemapgen/sitemapgen/internal/model"
)

// wellKnownLocations are the sitemap paths probed when robots.txt does
// not advertise one. CMS platforms each have their own convention.
var wellKnownLocations = []string{
	"/sitemap.xml", "/sitemap_index.xml", "/sitemap-index.xml",
	"/wp-sitemap.xml", "/sitemap.php", "/sitemap.txt",
	"/sitemap_news.xml", "/sitemap_video.xml", "/sitemap_image.xml",
	"/sitemap-mobile.xml", "/sitemap-news.xml", "/sitemap-posts.xml",
}

// Discoverer finds and parses a site's existing sitemaps.
type Discoverer struct {
	fetcher     *fetcher
	logger      *slog.Logger
	maxChildren int
	childDelay  time.Duration
}

// DiscovererOption configures a Discoverer.
type DiscovererOption func(*Discoverer)

// WithUserAgent sets the User-Agent header for discovery requests.
func WithUserAgent(ua string) DiscovererOption {
	return func(d *Discoverer) {
		d.fetcher.userAgent = ua
	}
}

// WithMaxRetries sets the retry count for each fetch.
func WithMaxRetries(n int) DiscovererOption {
	return func(d *Discoverer) {
		if n > 0 {
			d.fetcher.maxRetries = n
		}
	}
}

// WithMaxBodySize sets the maximum response body size to read.
func WithMaxBodySize(size int64) DiscovererOption {
	return func(d *Discoverer) {
		d.fetcher.maxBodySize = size
	}
}

// WithMaxChildSitemaps bounds how many children of a sitemap index are
// fetched. Large sites publish hundreds of child sitemaps.
func WithMaxChildSitemaps(n int) DiscovererOption {
	return func(d *Discoverer) {
		if n > 0 {
			d.maxChildren = n
		}
	}
}

// WithChildDelay sets the politeness delay between child sitemap fetches.
func WithChildDelay(delay time.Duration) DiscovererOption {
	return func(d *Discoverer) {
		d.childDelay = delay
	}
}

// WithLogger sets the logger for discovery progress.
func WithLogger(logger *slog.Logger) DiscovererOption {
	return func(d *Discoverer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDiscoverer creates a Discoverer using the given HTTP client.
func NewDiscoverer(client *http.Client, opts ...DiscovererOption) *Discoverer {
	d := &Discoverer{
		fetcher: &fetcher{
			client:      client,
			userAgent:   "Mozilla/5.0 (compatible; sitemapgen/1.0)",
			maxRetries:  3,
			retryDelay:  2 * time.Second,
			maxBodySize: 5 * 1024 * 1024,
		},
		logger:      slog.New(slog.DiscardHandler),
		maxChildren: 3,
		childDelay:  time.Second,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// DiscoveryResult holds what discovery found for a site.
type DiscoveryResult struct {
	// Sitemaps are the URLs of discovered sitemap documents.
	Sitemaps []string

	// Robots is the parsed robots.txt, nil if it was unavailable.
	// Crawlers use it to honor Disallow rules.
	Robots *robotstxt.RobotsData
}

// Discover finds existing sitemaps for the site at baseURL. It reads
// robots.txt Sitemap directives first, then probes well-known sitemap
// locations. baseURL must not have a trailing slash.
func (d *Discoverer) Discover(ctx context.Context, baseURL string) (*DiscoveryResult, error) {
	result := &DiscoveryResult{}
	seen := make(map[string]bool)

	robotsBody, err := d.fetcher.fetch(ctx, baseURL+"/robots.txt")
	if err != nil {
		d.logger.Debug("robots.txt unavailable", slog.String("target", baseURL), slog.String("error", err.Error()))
	} else {
		robots, err := robotstxt.FromBytes(robotsBody)
		if err != nil {
			d.logger.Warn("robots.txt unparsable", slog.String("target", baseURL))
		} else {
			result.Robots = robots
			for _, sm := range robots.Sitemaps {
				sm = strings.TrimSpace(sm)
				if sm != "" && !seen[sm] {
					seen[sm] = true
					result.Sitemaps = append(result.Sitemaps, sm)
					d.logger.Info("sitemap found in robots.txt", slog.String("sitemap", sm))
				}
			}
		}
	}

	for _, location := range wellKnownLocations {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		sitemapURL := baseURL + location
		if seen[sitemapURL] {
			continue
		}

		body, err := d.fetcher.fetch(ctx, sitemapURL)
		if err != nil {
			continue
		}
		if !looksLikeSitemap(body) {
			d.logger.Debug("probed file is not a sitemap", slog.String("url", sitemapURL))
			continue
		}

		seen[sitemapURL] = true
		result.Sitemaps = append(result.Sitemaps, sitemapURL)
		d.logger.Info("sitemap found", slog.String("sitemap", sitemapURL))
	}

	return result, nil
}

// Extract fetches a sitemap and returns its URL records. Sitemap index
// documents are followed up to the configured child limit.
func (d *Discoverer) Extract(ctx context.Context, sitemapURL string) ([]model.URLRecord, error) {
	return d.extract(ctx, sitemapURL, make(map[string]bool), 0)
}

// maxIndexDepth bounds nested sitemap indexes. Real indexes nest at
// most one level; anything deeper is malformed or a loop.
const maxIndexDepth = 2

func (d *Discoverer) extract(ctx context.Context, sitemapURL string, seen map[string]bool, depth int) ([]model.URLRecord, error) {
	if seen[sitemapURL] {
		return nil, nil
	}
	seen[sitemapURL] = true

	body, err := d.fetcher.fetch(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	if isIndex(body) {
		if depth >= maxIndexDepth {
			return nil, fmt.Errorf("sitemap index nesting too deep: %s", sitemapURL)
		}

		idx, err := decodeIndex(body)
		if err != nil {
			return nil, fmt.Errorf("parse sitemap index %s: %w", sitemapURL, err)
		}
		d.logger.Info("sitemap index",
			slog.String("sitemap", sitemapURL),
			slog.Int("children", len(idx.Sitemaps)))

		children := idx.Sitemaps
		if len(children) > d.maxChildren {
			children = children[:d.maxChildren]
		}

		var records []model.URLRecord
		for i, child := range children {
			if i > 0 && d.childDelay > 0 {
				select {
				case <-ctx.Done():
					return records, ctx.Err()
				case <-time.After(d.childDelay):
				}
			}

			childRecords, err := d.extract(ctx, strings.TrimSpace(child.Loc), seen, depth+1)
			if err != nil {
				d.logger.Warn("child sitemap failed",
					slog.String("sitemap", child.Loc),
					slog.String("error", err.Error()))
				continue
			}
			records = append(records, childRecords...)
		}
		return records, nil
	}

	set, err := decodeURLSet(body)
	if err != nil {
		// Plain-text sitemaps are one URL per line.
		if records := parsePlainText(body); len(records) > 0 {
			return records, nil
		}
		return nil, fmt.Errorf("parse sitemap %s: %w", sitemapURL, err)
	}

	now := time.Now()
	records := make([]model.URLRecord, 0, len(set.URLs))
	for _, entry := range set.URLs {
		loc := strings.TrimSpace(entry.Loc)
		if loc == "" {
			continue
		}
		entry.Loc = loc
		records = append(records, entry.ToRecord(now))
	}

	d.logger.Info("sitemap extracted",
		slog.String("sitemap", sitemapURL),
		slog.Int("urls", len(records)))
	return records, nil
}

// looksLikeSitemap reports whether a probed document is plausibly a
// sitemap rather than an HTML error page served with status 200.
func looksLikeSitemap(body []byte) bool {
	lower := bytes.ToLower(body)
	for _, tag := range [][]byte{[]byte("<urlset"), []byte("<sitemapindex"), []byte("sitemap")} {
		if bytes.Contains(lower, tag) {
			return true
		}
	}
	return false
}

// isIndex reports whether the document is a sitemap index.
func isIndex(body []byte) bool {
	return bytes.Contains(bytes.ToLower(body), []byte("<sitemapindex"))
}

func decodeURLSet(body []byte) (*URLSet, error) {
	var set URLSet
	if err := decodeXML(body, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func decodeIndex(body []byte) (*Index, error) {
	var idx Index
	if err := decodeXML(body, &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

// decodeXML decodes sitemap XML, converting legacy charsets declared in
// the XML prologue.
func decodeXML(body []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel
	return dec.Decode(v)
}

// parsePlainText parses a text sitemap: one absolute URL per line.
func parsePlainText(body []byte) []model.URLRecord {
	now := time.Now()
	var records []model.URLRecord
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "http://") && !strings.HasPrefix(line, "https://") {
			continue
		}
		records = append(records, model.URLRecord{
			Loc:        line,
			LastMod:    now,
			ChangeFreq: model.ChangeFreqWeekly,
			Priority:   0.5,
			Source:     model.SourceExistingSitemap,
		})
	}
	return records
}
