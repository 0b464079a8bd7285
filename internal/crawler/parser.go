package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Parser extracts sitemap-relevant information from HTML content.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because:
//  1. It correctly handles malformed HTML common on the web
//  2. Provides a proper DOM-like structure
//  3. More maintainable than complex regex patterns
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL
}

// ParseResult contains the information extracted from an HTML page.
type ParseResult struct {
	// Title is the page title from the <title> tag.
	Title string

	// Canonical is the URL from <link rel="canonical">, empty if absent.
	Canonical string

	// Links contains all discovered anchor URLs, resolved to absolute form.
	Links []string

	// InternalLinks are links on the same host as the base URL.
	InternalLinks []string

	// ExternalLinks are links to other hosts.
	ExternalLinks []string

	// MetaTags maps meta tag names (or OpenGraph properties) to content.
	MetaTags map[string]string
}

// NoIndex reports whether the page asks to be excluded from indexes
// via <meta name="robots">.
func (r *ParseResult) NoIndex() bool {
	return strings.Contains(strings.ToLower(r.MetaTags["robots"]), "noindex")
}

// NewParser creates a new HTML parser with the given base URL.
// The base URL is used to resolve relative links.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse parses HTML content and extracts title, links, and metadata.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links:         make([]string, 0),
		InternalLinks: make([]string, 0),
		ExternalLinks: make([]string, 0),
		MetaTags:      make(map[string]string),
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.processElement(n, result)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// processElement handles HTML element nodes.
func (p *Parser) processElement(n *html.Node, result *ParseResult) {
	switch n.Data {
	case "title":
		if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "a":
		if href := getAttr(n, "href"); href != "" {
			resolved := p.resolveURL(href)
			if resolved != "" {
				result.Links = append(result.Links, resolved)
				p.classifyLink(resolved, result)
			}
		}

	case "link":
		if getAttr(n, "rel") == "canonical" {
			if href := getAttr(n, "href"); href != "" {
				result.Canonical = p.resolveURL(href)
			}
		}

	case "meta":
		name := getAttr(n, "name")
		if name == "" {
			name = getAttr(n, "property") // OpenGraph uses property
		}
		content := getAttr(n, "content")
		if name != "" && content != "" {
			result.MetaTags[strings.ToLower(name)] = content
		}
	}
}

// resolveURL resolves a relative URL against the base URL. Non-HTTP
// schemes and bare fragments resolve to the empty string.
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") ||
		strings.HasPrefix(href, "#") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	// Fragments never change sitemap membership.
	resolved.Fragment = ""
	return resolved.String()
}

// classifyLink categorizes a link as internal or external.
func (p *Parser) classifyLink(link string, result *ParseResult) {
	u, err := url.Parse(link)
	if err != nil {
		return
	}

	if strings.EqualFold(u.Host, p.baseURL.Host) {
		result.InternalLinks = append(result.InternalLinks, link)
		return
	}
	result.ExternalLinks = append(result.ExternalLinks, link)
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
