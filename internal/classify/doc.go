// Package classify decides which URLs belong in a sitemap and assigns
// each one a category, priority, and change frequency based on its
// path structure.
package classify
