package classify

import (
	"net/url"
	"strings"

	"github.com/sitemapgen/sitemapgen/internal/model"
)

// excludedExtensions are file types that never belong in a sitemap.
var excludedExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".ico",
	".pdf", ".doc", ".docx", ".zip", ".rar",
	".mp4", ".mp3", ".avi", ".mov",
	".css", ".js", ".woff", ".ttf",
}

// excludedPatterns mark non-content URLs: infrastructure endpoints,
// auth flows, commerce state, and tracking query parameters.
var excludedPatterns = []string{
	"/cdn-cgi/", "/wp-admin/", "/wp-json/", "/api/", "/ajax/",
	"/logout", "/login", "/signin", "/signup", "/register",
	"/admin", "/dashboard", "/backend",
	"/cart", "/checkout", "/account",
	"?replytocom=", "?share=", "?feed=", "?s=",
	"#", "tel:", "mailto:", "javascript:",
}

// contactTerms, aboutTerms, articleTerms, and legalTerms identify page
// roles by path substring.
var (
	contactTerms = []string{"/contact", "/connect", "/get-in-touch"}
	aboutTerms   = []string{"/about", "/about-us", "/company"}
	articleTerms = []string{"/article/", "/news/", "/blog/", "/post/", "/story/"}
	legalTerms   = []string{"/privacy", "/terms", "/policy", "/disclaimer"}
)

// plainTopLevelPages are single-segment paths that are standalone pages
// rather than section indexes.
var plainTopLevelPages = map[string]bool{
	"about":   true,
	"contact": true,
	"privacy": true,
	"terms":   true,
}

// Classifier validates and categorizes URLs under a single base URL.
type Classifier struct {
	baseURL string
}

// New creates a Classifier for the site at baseURL. The base URL must
// not have a trailing slash.
func New(baseURL string) *Classifier {
	return &Classifier{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// IsValid reports whether a URL belongs in the sitemap. URLs outside
// the base URL, asset files, and non-content endpoints are rejected.
func (c *Classifier) IsValid(rawURL string) bool {
	if !strings.HasPrefix(rawURL, c.baseURL) {
		return false
	}

	lower := strings.ToLower(rawURL)
	for _, ext := range excludedExtensions {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	for _, pattern := range excludedPatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}

	return true
}

// Categorize assigns a category, priority, and change frequency to a
// URL based on its path. Deeper paths get lower priority and slower
// change frequency; section indexes and article paths rank high.
func (c *Classifier) Categorize(rawURL string) model.URLRecord {
	record := model.URLRecord{
		Loc:        rawURL,
		ChangeFreq: model.ChangeFreqWeekly,
		Priority:   0.5,
		Category:   model.CategoryOther,
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return record
	}

	path := u.Path
	parts := splitPath(path)
	record.Depth = len(parts)

	switch {
	case rawURL == c.baseURL || rawURL == c.baseURL+"/":
		record.Category = model.CategoryHomepage
		record.Priority = 1.0
		record.ChangeFreq = model.ChangeFreqDaily

	case containsAny(path, contactTerms):
		record.Category = model.CategoryContact
		record.Priority = 0.8

	case containsAny(path, aboutTerms):
		record.Category = model.CategoryAbout
		record.Priority = 0.8

	case containsAny(strings.ToLower(rawURL), articleTerms):
		record.Category = model.CategoryArticles
		record.Priority = 0.8
		record.ChangeFreq = model.ChangeFreqDaily

	case len(parts) == 1 && !plainTopLevelPages[parts[0]]:
		record.Category = model.CategoryMainSection
		record.Priority = 0.9
		record.ChangeFreq = model.ChangeFreqDaily

	case len(parts) == 2:
		record.Category = model.CategorySubSection
		record.Priority = 0.7
		record.ChangeFreq = model.ChangeFreqWeekly

	case len(parts) >= 3:
		record.Category = model.CategoryDeepContent
		record.Priority = 0.6
		record.ChangeFreq = model.ChangeFreqMonthly

	case containsAny(path, legalTerms):
		record.Category = model.CategoryLegal
		record.Priority = 0.3
		record.ChangeFreq = model.ChangeFreqYearly
	}

	return record
}

// EssentialPaths are paths every site is expected to have. They seed
// the sitemap even when neither crawling nor existing sitemaps found
// them.
var EssentialPaths = []string{
	"/", "/home", "/index",
	"/about", "/about-us",
	"/contact", "/contact-us",
	"/privacy", "/privacy-policy",
	"/terms", "/terms-of-service",
	"/news", "/blog", "/articles",
}

// Essentials returns categorized records for the essential paths.
func (c *Classifier) Essentials() []model.URLRecord {
	records := make([]model.URLRecord, 0, len(EssentialPaths))
	for _, path := range EssentialPaths {
		record := c.Categorize(c.baseURL + path)
		record.Source = model.SourceGenerated
		records = append(records, record)
	}
	return records
}

// splitPath returns the non-empty segments of a URL path.
func splitPath(path string) []string {
	var parts []string
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
