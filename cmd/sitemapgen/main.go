// Package main provides the entry point for the sitemapgen CLI.
//
// sitemapgen crawls a website and generates XML sitemaps organized by
// directory, along with a sitemap index ready for search engine submission.
//
// Usage:
//
//	sitemapgen generate <site-url>
//	sitemapgen generate <site-url> [site-url...]
//
// See --help for all available options.
package main

// main is the entry point for sitemapgen.
func main() {
	Execute()
}
