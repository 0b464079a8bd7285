package model

import (
	"net/url"
	"strings"
	"time"
)

// ChangeFreq is the expected change frequency of a page, as defined by the
// sitemap protocol (https://www.sitemaps.org/protocol.html).
type ChangeFreq string

// Valid changefreq values from the sitemap protocol.
const (
	ChangeFreqAlways  ChangeFreq = "always"
	ChangeFreqHourly  ChangeFreq = "hourly"
	ChangeFreqDaily   ChangeFreq = "daily"
	ChangeFreqWeekly  ChangeFreq = "weekly"
	ChangeFreqMonthly ChangeFreq = "monthly"
	ChangeFreqYearly  ChangeFreq = "yearly"
	ChangeFreqNever   ChangeFreq = "never"
)

// IsValid reports whether the value is one of the protocol-defined
// changefreq values.
func (c ChangeFreq) IsValid() bool {
	switch c {
	case ChangeFreqAlways, ChangeFreqHourly, ChangeFreqDaily, ChangeFreqWeekly,
		ChangeFreqMonthly, ChangeFreqYearly, ChangeFreqNever:
		return true
	default:
		return false
	}
}

// Source identifies how a URL was discovered.
type Source string

// Discovery sources, in the order the pipeline runs them.
const (
	// SourceExistingSitemap marks URLs extracted from sitemaps the site
	// already publishes (robots.txt directives or well-known locations).
	SourceExistingSitemap Source = "existing_sitemap"

	// SourceCrawler marks URLs discovered by crawling from the seed URL.
	SourceCrawler Source = "crawler"

	// SourceGenerated marks essential URLs added regardless of discovery.
	SourceGenerated Source = "generated"
)

// Category classifies a URL by its role on the site. The category drives
// the priority and changefreq assigned to the sitemap entry.
type Category string

// URL categories recognized by the classifier.
const (
	CategoryHomepage      Category = "homepage"
	CategoryContact       Category = "contact"
	CategoryAbout         Category = "about"
	CategoryArticles      Category = "articles"
	CategoryMainSection   Category = "main_categories"
	CategorySubSection    Category = "subcategories"
	CategoryDeepContent   Category = "deep_content"
	CategoryLegal         Category = "legal"
	CategoryOther         Category = "other"
)

// URLRecord is a single discovered URL together with the metadata that ends
// up in the generated sitemap entry.
type URLRecord struct {
	// Loc is the absolute URL of the page.
	Loc string `json:"loc"`

	// LastMod is the last modification date, formatted as YYYY-MM-DD when
	// written to the sitemap. Zero means unknown; the generator substitutes
	// the generation date.
	LastMod time.Time `json:"lastmod,omitempty"`

	// ChangeFreq is the expected change frequency of the page.
	ChangeFreq ChangeFreq `json:"changefreq,omitempty"`

	// Priority is the sitemap priority in [0.0, 1.0].
	Priority float64 `json:"priority"`

	// Category is the classifier's verdict for this URL.
	Category Category `json:"category"`

	// Source records how the URL was discovered.
	Source Source `json:"source"`

	// Depth is the number of non-empty path segments.
	Depth int `json:"depth"`
}

// TopDirectory returns the first path segment of the URL, used for grouping
// records into per-directory sitemap files. The homepage itself reports
// "homepage".
func (r *URLRecord) TopDirectory() string {
	u, err := url.Parse(r.Loc)
	if err != nil {
		return "homepage"
	}

	for _, part := range strings.Split(u.Path, "/") {
		if part != "" {
			return part
		}
	}
	return "homepage"
}
