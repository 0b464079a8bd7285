package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Page represents a single crawled web page.
//
// Design decision: We keep both the response metadata and the extracted
// links on the page because:
// 1. The crawler needs the links to extend the frontier
// 2. The database needs the content hash for lastmod stability
// 3. The report needs status codes to flag broken links
type Page struct {
	// URL is the normalized absolute URL of the page.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the MIME type from the Content-Type header.
	ContentType string `json:"content_type"`

	// Title is the page title from the <title> tag. Empty for non-HTML.
	Title string `json:"title,omitempty"`

	// Canonical is the URL from <link rel="canonical">, if present.
	Canonical string `json:"canonical,omitempty"`

	// Links are the same-host links extracted from the page, resolved to
	// absolute URLs.
	Links []string `json:"links,omitempty"`

	// LastModified is the parsed Last-Modified response header.
	// Zero if the header was absent or unparseable.
	LastModified time.Time `json:"last_modified,omitempty"`

	// Depth is the crawl depth at which the page was reached.
	// The seed URL has depth 0.
	Depth int `json:"depth"`

	// Hash is the SHA-256 hex digest of the response body. Used to detect
	// unchanged content across generation runs.
	Hash string `json:"hash,omitempty"`

	// FetchedAt is when the page was retrieved.
	FetchedAt time.Time `json:"fetched_at"`
}

// ComputeHash calculates the SHA-256 digest of the given body and stores it
// on the page. An empty body leaves the hash empty.
func (p *Page) ComputeHash(body []byte) {
	if len(body) == 0 {
		p.Hash = ""
		return
	}
	sum := sha256.Sum256(body)
	p.Hash = hex.EncodeToString(sum[:])
}

// IsHTML reports whether the content type indicates an HTML document.
func (p *Page) IsHTML() bool {
	return strings.HasPrefix(p.ContentType, "text/html") ||
		strings.HasPrefix(p.ContentType, "application/xhtml+xml")
}

// IsSuccess reports whether the page was fetched with a 2xx status.
func (p *Page) IsSuccess() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}
