// Package model defines the core data structures shared across sitemapgen.
//
// The central types are URLRecord, which describes a single discovered URL
// with its sitemap metadata, and GenerationReport, which accumulates the
// results of a generation run as it flows through the pipeline.
package model
