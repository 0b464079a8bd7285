// Package crawler implements the breadth-first site crawler used to
// discover pages that existing sitemaps miss. It parses HTML with
// golang.org/x/net/html, stays on the start host, honors robots.txt
// Disallow rules, and rate-limits itself between requests.
package crawler
