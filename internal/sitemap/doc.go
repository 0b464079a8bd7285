// Package sitemap implements the sitemaps.org XML model and the
// discovery and parsing of a site's existing sitemaps.
//
// Discovery checks the robots.txt Sitemap directives first, then probes
// a list of well-known sitemap locations. Parsing handles both plain
// urlset documents and sitemapindex documents, following a bounded
// number of child sitemaps.
package sitemap
