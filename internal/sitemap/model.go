package sitemap

import (
	"encoding/xml"
	"strconv"
	"time"

	"github.com/sitemapgen/sitemapgen/internal/model"
)

// XMLNamespace is the sitemaps.org protocol namespace.
const XMLNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// lastModLayout is the date format used for <lastmod> elements.
// The protocol allows full W3C datetime, but the date-only form is
// what most sites emit and what search engines expect.
const lastModLayout = "2006-01-02"

// URLSet is the root element of a plain sitemap document.
type URLSet struct {
	XMLName xml.Name   `xml:"urlset"`
	Xmlns   string     `xml:"xmlns,attr"`
	URLs    []URLEntry `xml:"url"`
}

// URLEntry is a single <url> element in a sitemap.
type URLEntry struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// Index is the root element of a sitemap index document.
type Index struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Xmlns    string       `xml:"xmlns,attr"`
	Sitemaps []IndexEntry `xml:"sitemap"`
}

// IndexEntry is a single <sitemap> element in a sitemap index.
type IndexEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// NewURLSet builds a URLSet from URL records, ready for marshaling.
func NewURLSet(records []model.URLRecord) *URLSet {
	set := &URLSet{
		Xmlns: XMLNamespace,
		URLs:  make([]URLEntry, 0, len(records)),
	}
	for _, r := range records {
		set.URLs = append(set.URLs, EntryFromRecord(r))
	}
	return set
}

// NewIndex builds an Index referencing the given sitemap URLs, all
// stamped with the given modification time.
func NewIndex(sitemapURLs []string, lastMod time.Time) *Index {
	idx := &Index{
		Xmlns:    XMLNamespace,
		Sitemaps: make([]IndexEntry, 0, len(sitemapURLs)),
	}
	for _, loc := range sitemapURLs {
		idx.Sitemaps = append(idx.Sitemaps, IndexEntry{
			Loc:     loc,
			LastMod: lastMod.Format(lastModLayout),
		})
	}
	return idx
}

// EntryFromRecord converts a URL record into its XML representation.
func EntryFromRecord(r model.URLRecord) URLEntry {
	entry := URLEntry{
		Loc:        r.Loc,
		ChangeFreq: string(r.ChangeFreq),
		Priority:   strconv.FormatFloat(r.Priority, 'f', 1, 64),
	}
	if !r.LastMod.IsZero() {
		entry.LastMod = r.LastMod.Format(lastModLayout)
	}
	return entry
}

// ToRecord converts a parsed <url> element into a URL record, filling
// defaults for absent optional elements the way most consumers do:
// weekly change frequency, 0.5 priority, and the current date.
func (e URLEntry) ToRecord(now time.Time) model.URLRecord {
	record := model.URLRecord{
		Loc:        e.Loc,
		LastMod:    now,
		ChangeFreq: model.ChangeFreqWeekly,
		Priority:   0.5,
		Source:     model.SourceExistingSitemap,
	}

	if e.LastMod != "" {
		if t, err := parseLastMod(e.LastMod); err == nil {
			record.LastMod = t
		}
	}
	if freq := model.ChangeFreq(e.ChangeFreq); freq.IsValid() {
		record.ChangeFreq = freq
	}
	if e.Priority != "" {
		if p, err := strconv.ParseFloat(e.Priority, 64); err == nil && p >= 0 && p <= 1 {
			record.Priority = p
		}
	}

	return record
}

// parseLastMod parses a <lastmod> value, accepting both the date-only
// form and full W3C datetime (RFC 3339).
func parseLastMod(s string) (time.Time, error) {
	if t, err := time.Parse(lastModLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
