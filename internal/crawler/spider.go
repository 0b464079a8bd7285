package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/net/html/charset"

	"github.com/sitemapgen/sitemapgen/internal/model"
)

// Spider crawls a site breadth-first starting from its homepage.
// It manages a frontier of URLs to visit and respects depth, page,
// and rate limits.
type Spider struct {
	// client is the HTTP client used for all requests.
	client *http.Client

	// maxDepth limits how deep to crawl from the starting URL.
	// 0 means only the starting page, 1 means one level of links, etc.
	maxDepth int

	// maxPages limits the total number of pages to crawl.
	// This prevents runaway crawling on large sites.
	maxPages int

	// frontierLimit caps the pending queue size. Link-dense pages can
	// otherwise grow the queue far beyond what maxPages will ever visit.
	frontierLimit int

	// delay is the time to wait between requests.
	// This is a politeness setting to avoid overwhelming servers.
	delay time.Duration

	// maxRetries is how many times a fetch is attempted.
	maxRetries int

	// retryDelay is the wait before a retry attempt.
	retryDelay time.Duration

	// userAgent is the User-Agent header to use.
	userAgent string

	// robotsAgent is the agent token matched against robots.txt groups.
	robotsAgent string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// robots holds parsed robots.txt rules, nil to skip the check.
	robots *robotstxt.RobotsData

	// linkFilter decides whether a discovered link enters the frontier.
	// Nil means all same-host links are followed.
	linkFilter func(string) bool

	// ignorePatterns are URL path patterns to skip during crawling.
	// Patterns use glob syntax (e.g., "/admin/*", "*.pdf").
	ignorePatterns []string

	// followPatterns are URL path patterns to follow during crawling.
	// If set, only URLs matching these patterns are crawled.
	// Empty means all URLs are allowed (subject to ignorePatterns).
	followPatterns []string

	// extraHeaders are added to every request, e.g. auth cookies.
	extraHeaders map[string]string

	logger *slog.Logger

	// visited tracks URLs already visited to avoid duplicates.
	visited map[string]bool

	// mutex protects concurrent access to visited.
	mutex sync.Mutex

	// pageCount tracks pages crawled.
	pageCount int

	// issues collects fetch and parse problems for the run report.
	issues []model.Issue
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the starting page, 1 = starting page plus linked pages, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of pages to crawl.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithFrontierLimit caps the size of the pending URL queue.
func WithFrontierLimit(limit int) SpiderOption {
	return func(s *Spider) {
		s.frontierLimit = limit
	}
}

// WithDelay sets the delay between requests.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithRetries sets the fetch attempt count and the wait between attempts.
func WithRetries(attempts int, delay time.Duration) SpiderOption {
	return func(s *Spider) {
		if attempts > 0 {
			s.maxRetries = attempts
		}
		s.retryDelay = delay
	}
}

// WithSpiderUserAgent sets a custom User-Agent header.
func WithSpiderUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		s.userAgent = ua
	}
}

// WithRobots sets parsed robots.txt rules to honor. The agent token is
// matched against the robots.txt group names.
func WithRobots(robots *robotstxt.RobotsData, agent string) SpiderOption {
	return func(s *Spider) {
		s.robots = robots
		s.robotsAgent = agent
	}
}

// SetRobots installs robots.txt rules after construction. Discovery
// runs before the crawl, so the rules are rarely known when the spider
// is built.
func (s *Spider) SetRobots(robots *robotstxt.RobotsData) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.robots = robots
}

// WithLinkFilter sets a predicate for discovered links. Links the
// predicate rejects never enter the frontier.
func WithLinkFilter(filter func(string) bool) SpiderOption {
	return func(s *Spider) {
		s.linkFilter = filter
	}
}

// WithSpiderMaxBodySize sets the maximum response body size.
func WithSpiderMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		s.maxBodySize = size
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
// URLs matching any of these patterns will not be crawled.
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// Patterns use glob syntax (e.g., "/docs/*", "/public/*").
// If set, only URLs matching at least one pattern are crawled.
// Empty slice means all URLs are allowed (default behavior).
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithExtraHeaders adds headers to every request, e.g. a session cookie
// for sites that gate content behind authentication.
func WithExtraHeaders(headers map[string]string) SpiderOption {
	return func(s *Spider) {
		s.extraHeaders = headers
	}
}

// WithSpiderLogger sets the logger for crawl progress.
func WithSpiderLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpider creates a new Spider with the given HTTP client.
//
// Design decision: We require an external client because:
//  1. TLS and timeout configuration is handled by the caller
//  2. Allows for different configurations in tests
func NewSpider(client *http.Client, opts ...SpiderOption) *Spider {
	s := &Spider{
		client:        client,
		maxDepth:      10,
		maxPages:      1000,
		frontierLimit: 500,
		delay:         500 * time.Millisecond,
		maxRetries:    3,
		retryDelay:    2 * time.Second,
		userAgent:     "Mozilla/5.0 (compatible; sitemapgen/1.0)",
		robotsAgent:   "sitemapgen",
		maxBodySize:   5 * 1024 * 1024, // 5MB
		logger:        slog.New(slog.DiscardHandler),
		visited:       make(map[string]bool),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Crawl starts crawling from the given URL and returns all fetched pages.
// A cancelled context returns the pages collected so far along with the
// context error.
func (s *Spider) Crawl(ctx context.Context, startURL string) ([]*model.Page, error) {
	start, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid start URL: %w", err)
	}
	if start.Scheme != "http" && start.Scheme != "https" {
		start.Scheme = "https"
	}

	pages := make([]*model.Page, 0)
	queue := []queueItem{{url: start.String(), depth: 0}}

	for len(queue) > 0 && s.pageCount < s.maxPages {
		select {
		case <-ctx.Done():
			return pages, ctx.Err()
		default:
		}

		item := queue[0]
		queue = queue[1:]

		if s.isVisited(item.url) {
			continue
		}
		s.markVisited(item.url)

		page, err := s.fetchPage(ctx, item.url, item.depth)
		if err != nil {
			s.addIssue(model.NewIssue(model.IssueFetchFailed, item.url, err.Error()))
			s.logger.Debug("fetch failed",
				slog.String("url", item.url),
				slog.String("error", err.Error()))
			continue
		}

		pages = append(pages, page)
		s.pageCount++
		if s.pageCount%10 == 0 {
			s.logger.Info("crawl progress",
				slog.Int("pages", s.pageCount),
				slog.Int("queued", len(queue)))
		}

		if !page.IsSuccess() {
			s.addIssue(model.NewIssue(model.IssueBrokenLink, item.url,
				fmt.Sprintf("status %d", page.StatusCode)))
		}

		if item.depth < s.maxDepth {
			for _, link := range page.Links {
				if len(queue) >= s.frontierLimit {
					break
				}
				if !s.isVisited(link) && s.shouldCrawl(link) {
					queue = append(queue, queueItem{url: link, depth: item.depth + 1})
				}
			}
		}

		if s.delay > 0 && len(queue) > 0 {
			select {
			case <-ctx.Done():
				return pages, ctx.Err()
			case <-time.After(s.delay):
			}
		}
	}

	return pages, nil
}

// queueItem represents an item in the crawl queue.
type queueItem struct {
	url   string
	depth int
}

// fetchPage fetches a single page with retries and extracts its content
// and links.
func (s *Spider) fetchPage(ctx context.Context, pageURL string, depth int) (*model.Page, error) {
	var lastErr error

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Debug("retrying fetch",
				slog.String("url", pageURL),
				slog.Int("attempt", attempt+1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.retryDelay):
			}
		}

		page, err := s.fetchOnce(ctx, pageURL, depth)
		if err == nil {
			return page, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

func (s *Spider) fetchOnce(ctx context.Context, pageURL string, depth int) (*model.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for key, value := range s.extraHeaders {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, err
	}

	// The client follows redirects, so resp.Request holds the final URL.
	// A redirect that leaves the host means the page content belongs to
	// another site; its links must not enter the frontier.
	offSite := resp.Request != nil && resp.Request.URL != nil &&
		!strings.EqualFold(resp.Request.URL.Host, req.URL.Host)
	if offSite {
		s.addIssue(model.NewIssue(model.IssueRedirectOffSite, pageURL,
			"redirected to "+resp.Request.URL.String()))
	}

	page := &model.Page{
		URL:         pageURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Depth:       depth,
		FetchedAt:   time.Now(),
	}
	page.ComputeHash(body)

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			page.LastModified = t
		}
	}

	if page.IsHTML() && !offSite {
		s.parseHTML(page, body)
	}

	return page, nil
}

// parseHTML extracts title, canonical URL, and same-host links from the
// page body, converting legacy charsets first.
func (s *Spider) parseHTML(page *model.Page, body []byte) {
	reader, err := charset.NewReader(bytes.NewReader(body), page.ContentType)
	if err != nil {
		reader = bytes.NewReader(body)
	}

	parser, err := NewParser(page.URL)
	if err != nil {
		return
	}
	result, err := parser.Parse(reader)
	if err != nil {
		return
	}

	page.Title = result.Title
	page.Canonical = result.Canonical
	page.Links = result.InternalLinks
}

// isVisited checks if a URL has been visited.
func (s *Spider) isVisited(pageURL string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.visited[s.normalizeURL(pageURL)]
}

// markVisited marks a URL as visited.
func (s *Spider) markVisited(pageURL string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.visited[s.normalizeURL(pageURL)] = true
}

// normalizeURL normalizes a URL for deduplication: the fragment is
// dropped, scheme and host are lowercased, and an empty path becomes "/".
func (s *Spider) normalizeURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

// shouldCrawl checks whether a discovered link may enter the frontier.
//
// Logic:
//  1. robots.txt Disallow rules win
//  2. URLs matching an ignorePattern are skipped
//  3. If followPatterns is set, the URL must match one
//  4. The link filter has the final word
func (s *Spider) shouldCrawl(targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	if s.robots != nil && !s.robots.TestAgent(path, s.robotsAgent) {
		return false
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(s.followPatterns) > 0 {
		matched := false
		for _, pattern := range s.followPatterns {
			if matchPattern(pattern, path) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if s.linkFilter != nil && !s.linkFilter(targetURL) {
		return false
	}

	return true
}

// addIssue records a crawl issue.
func (s *Spider) addIssue(issue model.Issue) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.issues = append(s.issues, issue)
}

// Issues returns the problems encountered during the last crawl.
func (s *Spider) Issues() []model.Issue {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]model.Issue(nil), s.issues...)
}

// Reset clears the spider's state, allowing it to be reused.
func (s *Spider) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.visited = make(map[string]bool)
	s.pageCount = 0
	s.issues = nil
}

// Stats returns current crawl statistics.
func (s *Spider) Stats() SpiderStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return SpiderStats{
		PagesVisited: s.pageCount,
		URLsSeen:     len(s.visited),
	}
}

// SpiderStats contains crawl statistics.
type SpiderStats struct {
	// PagesVisited is the number of pages successfully crawled.
	PagesVisited int

	// URLsSeen is the number of unique URLs encountered.
	URLsSeen int
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard", "/admin/users"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		ext := strings.TrimPrefix(pattern, "*")
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	// Also try matching just the filename for patterns like "*.pdf".
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		filename := filepath.Base(path)
		matched, err := filepath.Match(pattern, filename)
		if err == nil && matched {
			return true
		}
	}

	return false
}
