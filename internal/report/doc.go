// Package report writes generation results in multiple formats: a
// human-readable console summary, JSON for tool integration, and
// Markdown for documentation and sharing.
package report
