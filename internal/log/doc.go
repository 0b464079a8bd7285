// Package log provides structured logging helpers for sitemapgen.
//
// Site configurations may carry authentication cookies and headers for
// crawling access-restricted sites, and crawled URLs can embed userinfo.
// The handlers in this package scrub those values before they reach the
// underlying slog handler, so verbose logs stay safe to share.
package log
