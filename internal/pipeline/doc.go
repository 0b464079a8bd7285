// Package pipeline orchestrates sitemap generation as a sequence of
// steps: discover existing sitemaps, crawl the site, add essential
// URLs, deduplicate, organize, reconcile lastmod dates, write the
// sitemap files, and persist the run.
//
// Each step reads and extends a shared GenerationReport. The
// BatchProcessor runs the full pipeline for several sites concurrently.
package pipeline
